// Package wormgame implements the authoritative simulation: the board,
// worm movement, elimination, and the deterministic game-start sequence. It
// has no knowledge of sockets or peers; the server wires it to clients.
package wormgame

import (
	"math"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// cell is a board coordinate. It is signed because a worm's floating-point
// position can cross zero before the out-of-bounds check catches it.
type cell struct{ X, Y int64 }

// PlayerSlot is a single player's simulation state for the current game. Its
// index within GameState.Players is that player's player_number for the
// lifetime of one game.
type PlayerSlot struct {
	Name          string
	X, Y          float64
	HeadingDeg    float64
	TurnDirection int8 // -1, 0, or 1
	Eliminated    bool

	// ClientAttached reports whether a ClientConnection currently backs this
	// slot. The server clears this (without touching the slot's index or
	// name) when the backing client is reaped; the slot
	// itself is never removed mid-game so player_number never shifts.
	ClientAttached bool
}

// GameState is the authoritative board and event log for one game cycle. It
// is not safe for concurrent use; callers (wormserver) serialize access with
// their own mutex.
type GameState struct {
	GameID     uint32
	InProgress bool
	BoardW     uint32
	BoardH     uint32

	Pixels  map[cell]struct{}
	Events  []wireproto.Event
	Players []PlayerSlot
}

// New creates an empty GameState for a board of the given dimensions.
func New(boardW, boardH uint32) *GameState {
	return &GameState{
		BoardW: boardW,
		BoardH: boardH,
		Pixels: make(map[cell]struct{}),
	}
}

// NextEventNo is the event_no that would be assigned to the next emitted
// event: event numbers are consecutive starting at 0, so this is simply
// the current log length.
func (gs *GameState) NextEventNo() uint32 {
	return uint32(len(gs.Events))
}

func (gs *GameState) emit(ev wireproto.Event) wireproto.Event {
	gs.Events = append(gs.Events, ev)
	return ev
}

func (gs *GameState) emitNewGame(names []string) wireproto.Event {
	return gs.emit(wireproto.NewNewGameEvent(gs.NextEventNo(), gs.BoardW, gs.BoardH, names))
}

func (gs *GameState) emitPixel(player uint8, c cell) wireproto.Event {
	return gs.emit(wireproto.NewPixelEvent(gs.NextEventNo(), player, uint32(c.X), uint32(c.Y)))
}

func (gs *GameState) emitPlayerEliminated(player uint8) wireproto.Event {
	return gs.emit(wireproto.NewPlayerEliminatedEvent(gs.NextEventNo(), player))
}

func (gs *GameState) emitGameOver() wireproto.Event {
	return gs.emit(wireproto.NewGameOverEvent(gs.NextEventNo()))
}

func floorCell(x, y float64) cell {
	return cell{X: int64(math.Floor(x)), Y: int64(math.Floor(y))}
}

func (gs *GameState) inBounds(c cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < int64(gs.BoardW) && c.Y < int64(gs.BoardH)
}

func (gs *GameState) occupied(c cell) bool {
	_, ok := gs.Pixels[c]
	return ok
}

func (gs *GameState) occupy(c cell) {
	gs.Pixels[c] = struct{}{}
}

// nonEliminatedCount returns the number of players still alive.
func (gs *GameState) nonEliminatedCount() int {
	n := 0
	for _, p := range gs.Players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}

// checkTermination emits GameOver and halts the game if exactly one
// non-eliminated player remains. It reports whether the game
// ended.
func (gs *GameState) checkTermination() (ended bool, ev wireproto.Event) {
	if len(gs.Players) > 0 && gs.nonEliminatedCount() == 1 {
		ev = gs.emitGameOver()
		gs.InProgress = false
		return true, ev
	}
	return false, wireproto.Event{}
}
