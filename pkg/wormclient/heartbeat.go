package wormclient

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/wormnet/wormwire/pkg/wireproto"
)

// HeartbeatInterval is the client's CLIENT_MESSAGE send cadence.
const HeartbeatInterval = 20 * time.Millisecond

// heartbeatLoop is the heartbeat sender activity: every
// HeartbeatInterval it reads the current turn_direction and
// next_expected_event and sends one CLIENT_MESSAGE.
func (c *Client) heartbeatLoop(ctx context.Context) error {
	t := time.NewTicker(HeartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		msg := wireproto.ClientMessage{
			SessionID:         c.sessionID,
			TurnDirection:     int8(c.turnDirection.Load()),
			NextExpectedEvent: c.demuxNextExpectedEvent(),
			PlayerName:        c.playerName,
		}
		b := wireproto.EncodeClientMessage(msg)
		if _, err := c.serverConn.Write(b); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				continue
			}
			c.Logger.Warn().Err(err).Msg("send heartbeat failed")
		}
	}
}
