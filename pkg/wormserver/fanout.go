package wormserver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// fanOutTarget is one client's outstanding-events bookkeeping, copied out of
// the client table under the lock.
type fanOutTarget struct {
	addr              netip.AddrPort
	nextExpectedEvent uint32
}

// fanOutLoop is the fan-out activity: periodically, it takes
// the lock just long enough to copy the event log and each client's
// (addr, next_expected_event) into a private snapshot, releases the lock,
// and only then sends datagrams, so a slow or blocked socket write never
// holds up the receiver or ticker.
func (s *Server) fanOutLoop(ctx context.Context) {
	t := time.NewTicker(FanOutInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s.fanOutPass()
	}
}

func (s *Server) fanOutPass() {
	start := time.Now()
	defer s.metrics.fanOutDurationSeconds.UpdateDuration(start)

	s.mu.Lock()
	gameID := s.game.GameID
	events := append([]wireproto.Event(nil), s.game.Events...)
	var targets []fanOutTarget
	s.clients.each(func(c *ClientConnection) {
		targets = append(targets, fanOutTarget{addr: c.Addr, nextExpectedEvent: c.NextExpectedEvent})
	})
	s.mu.Unlock()

	for _, target := range targets {
		next := target.nextExpectedEvent
		if next > uint32(len(events)) {
			// The client is still advertising its position in a previous
			// game's log. Restart it from 0 so it sees the new game's
			// NewGame event, which is what tells it to reset.
			next = 0
		}
		if uint32(len(events)) <= next {
			continue
		}
		pending := events[next:]
		for _, dg := range wireproto.PackEvents(gameID, pending) {
			if err := s.sendDatagram(target.addr, dg); err != nil {
				break // stop this client's pass; the next pass retries
			}
		}
	}
}

// sendDatagram does a best-effort non-blocking send. Any error is returned,
// which ends the current pass for that client; a transient
// (temporary/EAGAIN-class) error or a closed socket is not logged, anything
// else is logged.
func (s *Server) sendDatagram(addr netip.AddrPort, b []byte) error {
	_, err := s.conn.WriteToUDPAddrPort(b, addr)
	if err != nil {
		s.metrics.datagramsTxErrors.Inc()
		var ne net.Error
		if errors.As(err, &ne) && ne.Temporary() || errors.Is(err, net.ErrClosed) {
			return err
		}
		s.Logger.Warn().Err(err).Str("addr", addr.String()).Msg("send server message failed")
		return err
	}
	s.metrics.datagramsTxTotal.Inc()
	return nil
}
