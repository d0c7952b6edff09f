package wormserver

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// WriteEventLogGzip gzip-encodes the current game's event log to w, for
// offline inspection when diagnosing an event-log divergence between
// clients. Diagnostic-only machinery with no effect on the simulation.
func (s *Server) WriteEventLogGzip(w io.Writer) error {
	s.mu.Lock()
	gameID := s.game.GameID
	events := append([]wireproto.Event(nil), s.game.Events...)
	s.mu.Unlock()

	gz := gzip.NewWriter(w)
	defer gz.Close()

	var buf []byte
	for _, dg := range wireproto.PackEvents(gameID, events) {
		buf = append(buf, dg...)
	}
	_, err := gz.Write(buf)
	return err
}
