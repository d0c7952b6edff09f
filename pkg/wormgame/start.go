package wormgame

import (
	"sort"

	"github.com/wormnet/wormwire/pkg/wireproto"
	"github.com/wormnet/wormwire/pkg/wrng"
)

// MinPlayersToStart is the minimum number of ready clients required to
// start a game.
const MinPlayersToStart = 2

// SelectStartRoster takes candidate names in iteration order and returns the
// prefix that fits within one NewGame event's 512-byte datagram budget
//: names are accumulated, each counted as len(name)+1 for its
// NUL terminator, until adding one more would overrun the budget.
func SelectStartRoster(candidates []string) []string {
	var selected []string
	used := 0
	for _, n := range candidates {
		cost := len(n) + 1
		if used+cost > wireproto.NewGameNamesBudget {
			break
		}
		used += cost
		selected = append(selected, n)
	}
	return selected
}

// StartGame begins a new game with the given roster (already selected by
// SelectStartRoster and confirmed to number at least MinPlayersToStart).
// It performs the deterministic start sequence: assign a new game_id,
// emit NewGame, then for each player (in name-sorted order, which
// fixes player_number) draw a starting position and heading and emit
// either Pixel or PlayerEliminated. Players from the previous game and its
// event log are discarded here rather than at GameOver, so the finished
// log stays available for fan-out to drain during the idle window between
// GameOver and the next game.
func (gs *GameState) StartGame(rng *wrng.Rand, roster []string) []wireproto.Event {
	sorted := append([]string(nil), roster...)
	sort.Strings(sorted)

	gs.Pixels = make(map[cell]struct{})
	gs.Events = nil
	gs.Players = make([]PlayerSlot, len(sorted))
	for i, name := range sorted {
		gs.Players[i] = PlayerSlot{Name: name, ClientAttached: true}
	}

	gs.GameID = rng.Next()
	gs.InProgress = true

	var emitted []wireproto.Event
	emitted = append(emitted, gs.emitNewGame(sorted))

	for i := range gs.Players {
		p := &gs.Players[i]

		x := float64(rng.Intn(gs.BoardW)) + 0.5
		y := float64(rng.Intn(gs.BoardH)) + 0.5
		heading := float64(rng.Intn(360))
		p.X, p.Y, p.HeadingDeg = x, y, heading

		c := floorCell(x, y)
		var ev wireproto.Event
		if gs.occupied(c) {
			p.Eliminated = true
			ev = gs.emitPlayerEliminated(uint8(i))
		} else {
			gs.occupy(c)
			ev = gs.emitPixel(uint8(i), c)
		}
		emitted = append(emitted, ev)

		if ended, over := gs.checkTermination(); ended {
			emitted = append(emitted, over)
			return emitted
		}
	}

	return emitted
}
