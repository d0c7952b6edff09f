package wormgame

import (
	"testing"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// TestTickNoEventWhenCellUnchanged pins down that a step
// that doesn't cross into a new integer cell emits nothing, even though
// the player's continuous position advanced.
func TestTickNoEventWhenCellUnchanged(t *testing.T) {
	gs := New(800, 600)
	gs.InProgress = true
	gs.Players = []PlayerSlot{{Name: "A", X: 10.05, Y: 10.05, HeadingDeg: 315}} // step of ~(0.71, 0.71) stays in cell (10,10)
	gs.occupy(cell{X: 10, Y: 10})

	emitted := gs.Tick(6)
	if len(emitted) != 0 {
		t.Fatalf("expected no events for a sub-cell move, got %v", emitted)
	}
	if gs.Players[0].Eliminated {
		t.Error("player should not be eliminated by staying in the same cell")
	}
}

// TestTickEliminatesOnSelfCollision verifies that re-entering an occupied
// cell eliminates the player rather than re-emitting a Pixel.
func TestTickEliminatesOnSelfCollision(t *testing.T) {
	gs := New(800, 600)
	gs.InProgress = true
	// Three players so that eliminating one doesn't also end the game.
	gs.Players = []PlayerSlot{
		{Name: "A", X: 10.5, Y: 10.5, HeadingDeg: 0},
		{Name: "B", X: 500.5, Y: 500.5, HeadingDeg: 0},
		{Name: "C", X: 600.5, Y: 550.5, HeadingDeg: 0},
	}
	gs.occupy(cell{X: 11, Y: 10}) // directly in front of player A

	emitted := gs.Tick(0)
	if emitted[0].Kind != wireproto.EventPlayerEliminated {
		t.Fatalf("emitted[0] = %v, want PlayerEliminated", emitted[0])
	}
	if emitted[0].PlayerEliminated.PlayerNumber != 0 {
		t.Errorf("eliminated player_number = %d, want 0", emitted[0].PlayerEliminated.PlayerNumber)
	}
	if !gs.Players[0].Eliminated {
		t.Error("player 0 should be marked eliminated")
	}
}

// TestTickEliminatesOutOfBounds verifies boundary exit eliminates. A third
// player is kept stationary in heading so eliminating the first doesn't
// also end the game (exactly one non-eliminated player triggers GameOver).
func TestTickEliminatesOutOfBounds(t *testing.T) {
	gs := New(10, 10)
	gs.InProgress = true
	gs.Players = []PlayerSlot{
		{Name: "A", X: 0.5, Y: 0.5, HeadingDeg: 180}, // facing toward -x
		{Name: "B", X: 5.5, Y: 5.5, HeadingDeg: 0},
		{Name: "C", X: 2.5, Y: 2.5, HeadingDeg: 90},
	}

	emitted := gs.Tick(0)
	if len(emitted) != 3 {
		t.Fatalf("emitted = %v, want 3 events (one per player, none terminating)", emitted)
	}
	if emitted[0].Kind != wireproto.EventPlayerEliminated || emitted[0].PlayerEliminated.PlayerNumber != 0 {
		t.Fatalf("emitted[0] = %v, want PlayerEliminated for player 0", emitted[0])
	}
}

// TestTickGameOverOnLastSurvivor checks that the GameOver condition halts
// the rest of the round's player loop: player
// 0's elimination leaves exactly one survivor (player 2), so player 2 never
// gets its turn this round.
func TestTickGameOverOnLastSurvivor(t *testing.T) {
	gs := New(10, 10)
	gs.InProgress = true
	gs.Players = []PlayerSlot{
		{Name: "A", X: 0.5, Y: 0.5, HeadingDeg: 180}, // will exit bounds this tick
		{Name: "B", X: 1.5, Y: 1.5, HeadingDeg: 0, Eliminated: true},
		{Name: "C", X: 5.5, Y: 5.5, HeadingDeg: 0}, // sole survivor once A is gone
	}

	emitted := gs.Tick(0)
	if len(emitted) != 2 {
		t.Fatalf("emitted = %v, want [PlayerEliminated, GameOver]", emitted)
	}
	if emitted[0].Kind != wireproto.EventPlayerEliminated || emitted[1].Kind != wireproto.EventGameOver {
		t.Fatalf("emitted kinds = %v, %v", emitted[0].Kind, emitted[1].Kind)
	}
	if gs.InProgress {
		t.Error("expected InProgress to be false after GameOver")
	}
	if gs.Players[2].X != 5.5 || gs.Players[2].Y != 5.5 {
		t.Error("player 2 should never have gotten a turn this round")
	}
}

// TestPixelEmittedOnceThenEliminationOnReentry: a Pixel event for a given cell is emitted at most once per
// game; re-entering it eliminates instead. Other players are kept far away
// so their own incidental movement can't interfere with the assertion.
func TestPixelEmittedOnceThenEliminationOnReentry(t *testing.T) {
	gs := New(800, 600)
	gs.InProgress = true
	gs.Players = []PlayerSlot{
		{Name: "A", X: 10.5, Y: 10.5, HeadingDeg: 90}, // heading "up" in screen terms
		{Name: "B", X: 500.5, Y: 500.5, HeadingDeg: 0},
		{Name: "C", X: 600.5, Y: 600.5, HeadingDeg: 0},
	}

	first := gs.Tick(0)
	firstA := findPlayerEvent(first, 0)
	if firstA == nil || firstA.Kind != wireproto.EventPixel {
		t.Fatalf("expected player 0's move to emit Pixel, got %v", first)
	}

	// Turn player A around 180 degrees one cell past (10,9) and walk back
	// into the cell it just claimed.
	gs.Players[0].HeadingDeg = 270
	gs.Players[0].X, gs.Players[0].Y = 10.5, 8.5

	second := gs.Tick(0)
	secondA := findPlayerEvent(second, 0)
	if secondA == nil || secondA.Kind != wireproto.EventPlayerEliminated {
		t.Fatalf("expected player 0's return move to emit PlayerEliminated, got %v", second)
	}
}

func findPlayerEvent(events []wireproto.Event, player uint8) *wireproto.Event {
	for i := range events {
		switch events[i].Kind {
		case wireproto.EventPixel:
			if events[i].Pixel.PlayerNumber == player {
				return &events[i]
			}
		case wireproto.EventPlayerEliminated:
			if events[i].PlayerEliminated.PlayerNumber == player {
				return &events[i]
			}
		}
	}
	return nil
}
