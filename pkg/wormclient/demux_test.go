package wormclient

import (
	"reflect"
	"testing"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

func TestDemuxOrdersAndForwardsNewGame(t *testing.T) {
	d := NewDemux()
	msg := wireproto.ServerMessage{
		GameID: 77,
		Events: []wireproto.Event{
			wireproto.NewNewGameEvent(0, 10, 10, []string{"A", "B"}),
			wireproto.NewPixelEvent(1, 0, 5, 5),
		},
	}
	lines, started := d.Feed(msg)
	if started {
		t.Error("the first game is not a game transition")
	}
	want := []string{"NEW_GAME 10 10 A B", "PIXEL 5 5 A"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	if d.NextExpectedEvent() != 2 {
		t.Errorf("next_expected_event = %d, want 2", d.NextExpectedEvent())
	}
}

func TestDemuxDropsDifferentGameIDUntilFreshNewGame(t *testing.T) {
	d := NewDemux()
	d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{wireproto.NewNewGameEvent(0, 10, 10, []string{"A", "B"})},
	})

	// A stray datagram from a stale game_id is dropped wholesale.
	stale, _ := d.Feed(wireproto.ServerMessage{
		GameID: 0,
		Events: []wireproto.Event{wireproto.NewPixelEvent(99, 0, 1, 1)},
	})
	if stale != nil {
		t.Errorf("expected nil for wrong-game_id non-NewGame datagram, got %v", stale)
	}

	other, _ := d.Feed(wireproto.ServerMessage{
		GameID: 2,
		Events: []wireproto.Event{wireproto.NewPixelEvent(5, 0, 1, 1)},
	})
	if other != nil {
		t.Errorf("expected nil for a different game_id without a fresh NewGame, got %v", other)
	}

	fresh, started := d.Feed(wireproto.ServerMessage{
		GameID: 2,
		Events: []wireproto.Event{wireproto.NewNewGameEvent(0, 20, 20, []string{"C"})},
	})
	if !started {
		t.Error("expected the fresh NewGame to report a game transition")
	}
	if len(fresh) != 1 || fresh[0] != "NEW_GAME 20 20 C" {
		t.Fatalf("fresh game reset failed: %v", fresh)
	}
	if d.NextExpectedEvent() != 1 {
		t.Errorf("next_expected_event = %d, want 1 after reset", d.NextExpectedEvent())
	}
}

func TestDemuxDropsDuplicatesAndGaps(t *testing.T) {
	d := NewDemux()
	d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{wireproto.NewNewGameEvent(0, 10, 10, []string{"A"})},
	})

	// Redundant retransmission of event 0, plus a gap at event 2 (event 1 is
	// missing): neither is forwarded, event_no 0 being a duplicate and
	// event_no 2 a gap.
	lines, _ := d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{
			wireproto.NewNewGameEvent(0, 10, 10, []string{"A"}),
			wireproto.NewPlayerEliminatedEvent(2, 0),
		},
	})
	if lines != nil {
		t.Errorf("expected no forwarded lines for a duplicate plus a gap, got %v", lines)
	}
	if d.NextExpectedEvent() != 1 {
		t.Errorf("next_expected_event = %d, want 1", d.NextExpectedEvent())
	}

	// Now the missing event 1 arrives: it should forward, and bring
	// next_expected_event to 2.
	lines, _ = d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{wireproto.NewPixelEvent(1, 0, 3, 3)},
	})
	if len(lines) != 1 || lines[0] != "PIXEL 3 3 A" {
		t.Fatalf("lines = %v, want [PIXEL 3 3 A]", lines)
	}
	if d.NextExpectedEvent() != 2 {
		t.Errorf("next_expected_event = %d, want 2", d.NextExpectedEvent())
	}
}

func TestDemuxRejectsOutOfRangePlayerNumber(t *testing.T) {
	d := NewDemux()
	d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{wireproto.NewNewGameEvent(0, 10, 10, []string{"A"})},
	})

	lines, _ := d.Feed(wireproto.ServerMessage{
		GameID: 1,
		Events: []wireproto.Event{wireproto.NewPixelEvent(1, 5, 1, 1)}, // player_number 5, but only 1 active name
	})
	if lines != nil {
		t.Errorf("expected out-of-range player_number to be dropped, got %v", lines)
	}
	// The bad event at the expected position is still consumed so the
	// server doesn't resend it forever.
	if d.NextExpectedEvent() != 2 {
		t.Errorf("next_expected_event = %d, want 2", d.NextExpectedEvent())
	}
}
