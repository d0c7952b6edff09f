package wormgame

import (
	"math"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// TurningSpeedDeg is the number of degrees a player's heading changes per
// round per unit of turn_direction (the server's -t flag, default 6).
type TurningSpeedDeg = float64

// Tick advances the simulation by one round: if the game is in progress,
// every non-eliminated player turns, advances one unit, and is
// tested for elimination or a new occupied pixel. It returns the events
// emitted during this round, which are also appended to gs.Events.
//
// A GameOver emitted mid-round halts iteration over the remaining players
// for this round.
func (gs *GameState) Tick(turningSpeed TurningSpeedDeg) []wireproto.Event {
	if !gs.InProgress {
		return nil
	}

	var emitted []wireproto.Event

	for i := range gs.Players {
		p := &gs.Players[i]
		if p.Eliminated {
			continue
		}

		p.HeadingDeg = math.Mod(p.HeadingDeg+float64(p.TurnDirection)*turningSpeed, 360)
		if p.HeadingDeg < 0 {
			p.HeadingDeg += 360
		}

		oldCell := floorCell(p.X, p.Y)

		rad := -p.HeadingDeg * math.Pi / 180
		p.X += math.Cos(rad)
		p.Y += math.Sin(rad)

		newCell := floorCell(p.X, p.Y)
		if newCell == oldCell {
			continue
		}

		var ev wireproto.Event
		if !gs.inBounds(newCell) || gs.occupied(newCell) {
			p.Eliminated = true
			ev = gs.emitPlayerEliminated(uint8(i))
		} else {
			gs.occupy(newCell)
			ev = gs.emitPixel(uint8(i), newCell)
		}
		emitted = append(emitted, ev)

		if ended, over := gs.checkTermination(); ended {
			emitted = append(emitted, over)
			return emitted
		}
	}

	return emitted
}
