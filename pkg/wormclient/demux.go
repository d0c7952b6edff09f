// Package wormclient implements the client-side event demultiplexer, the
// heartbeat sender, and the front-end text-protocol bridge. It has no UI
// of its own; the front-end is a separate process reached over a reliable
// stream connection.
package wormclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// Demux tracks next_expected_event and the current game_id, and turns a
// decoded SERVER_MESSAGE into the ordered front-end text lines
// the front-end consumes. It is not safe for concurrent use.
type Demux struct {
	haveGame          bool
	gameID            uint32
	nextExpectedEvent uint32
	activeNames       []string
	maxX, maxY        uint32
}

// NewDemux creates a Demux with next_expected_event = 0 and no current
// game.
func NewDemux() *Demux {
	return &Demux{}
}

// NextExpectedEvent is the value the heartbeat sender advertises to the
// server.
func (d *Demux) NextExpectedEvent() uint32 {
	return d.nextExpectedEvent
}

// Feed processes one SERVER_MESSAGE and returns the front-end lines it
// produces, in order, plus whether this message started a new game (so the
// caller can discard any lines still queued from the previous one). The
// rules, in order of application:
//
//   - If game_id differs from the stored one and the first event is
//     NewGame with event_no 0, reset (new game_id, next_expected_event=0,
//     clear active names).
//   - Otherwise, if game_id differs, drop the whole datagram.
//   - Events are then applied one at a time: event_no < next_expected is a
//     duplicate (dropped), event_no > next_expected is a gap (dropped, the
//     server will re-supply it), and event_no == next_expected is
//     validated for cross-field consistency, forwarded if valid, and
//     advances next_expected_event either way (an invalid event at the
//     expected position is still consumed, or the server would resend it
//     forever).
func (d *Demux) Feed(msg wireproto.ServerMessage) (lines []string, started bool) {
	if !d.haveGame || msg.GameID != d.gameID {
		if len(msg.Events) == 0 || msg.Events[0].Kind != wireproto.EventNewGame || msg.Events[0].No != 0 {
			return nil, false
		}
		started = d.haveGame
		d.haveGame = true
		d.gameID = msg.GameID
		d.nextExpectedEvent = 0
		d.activeNames = nil
		d.maxX, d.maxY = 0, 0
	}

	for _, ev := range msg.Events {
		switch {
		case ev.No < d.nextExpectedEvent:
			// duplicate, already forwarded
		case ev.No > d.nextExpectedEvent:
			// gap: UDP loss, the next heartbeat cycle re-requests it
		default:
			if d.validate(ev) {
				lines = append(lines, d.apply(ev)...)
			}
			d.nextExpectedEvent++
		}
	}
	return lines, started
}

func (d *Demux) validate(ev wireproto.Event) bool {
	switch ev.Kind {
	case wireproto.EventPixel:
		return int(ev.Pixel.PlayerNumber) < len(d.activeNames) && ev.Pixel.X <= d.maxX && ev.Pixel.Y <= d.maxY
	case wireproto.EventPlayerEliminated:
		return int(ev.PlayerEliminated.PlayerNumber) < len(d.activeNames)
	default:
		return true
	}
}

func (d *Demux) apply(ev wireproto.Event) []string {
	switch ev.Kind {
	case wireproto.EventNewGame:
		d.activeNames = append([]string(nil), ev.NewGame.PlayerNames...)
		d.maxX, d.maxY = ev.NewGame.MaxX, ev.NewGame.MaxY
		return []string{formatNewGame(ev.NewGame)}
	case wireproto.EventPixel:
		return []string{fmt.Sprintf("PIXEL %d %d %s", ev.Pixel.X, ev.Pixel.Y, d.activeNames[ev.Pixel.PlayerNumber])}
	case wireproto.EventPlayerEliminated:
		return []string{fmt.Sprintf("PLAYER_ELIMINATED %s", d.activeNames[ev.PlayerEliminated.PlayerNumber])}
	case wireproto.EventGameOver:
		return nil
	default:
		return nil
	}
}

func formatNewGame(ng wireproto.NewGameData) string {
	parts := make([]string, 0, 2+len(ng.PlayerNames))
	parts = append(parts, "NEW_GAME", strconv.FormatUint(uint64(ng.MaxX), 10), strconv.FormatUint(uint64(ng.MaxY), 10))
	parts = append(parts, ng.PlayerNames...)
	return strings.Join(parts, " ")
}
