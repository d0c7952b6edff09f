package wormclient

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/wormnet/wormwire/pkg/wireproto"
)

// LinesQueueSize bounds the number of pending front-end lines; when the
// queue is full the producer (UDP receiver) drops the new line and logs a
// warning instead of blocking, so a stalled front-end never stalls the
// demultiplexer.
const LinesQueueSize = 4096

// Client is one participating player or spectator: it owns the UDP socket
// to the game server and the stream socket to the front-end, and runs the
// four concurrent activities: UDP receiver, heartbeat sender, front-end
// stream sender, and front-end stream receiver.
type Client struct {
	Logger zerolog.Logger

	serverConn net.Conn // connected UDP socket to the server
	feConn     net.Conn // stream socket to the front-end (TCP_NODELAY)

	sessionID  uint64
	playerName string

	turnDirection atomic.Int32 // -1, 0, or 1

	mu    sync.Mutex
	demux *Demux

	lines chan string
}

// NewClient creates a Client. serverConn must already be connected (e.g.
// via net.DialUDP) to the game server; feConn must already be connected to
// the front-end with TCP_NODELAY set.
func NewClient(serverConn, feConn net.Conn, sessionID uint64, playerName string, logger zerolog.Logger) *Client {
	return &Client{
		Logger:     logger,
		serverConn: serverConn,
		feConn:     feConn,
		sessionID:  sessionID,
		playerName: playerName,
		demux:      NewDemux(),
		lines:      make(chan string, LinesQueueSize),
	}
}

// Run starts all four activities and blocks until ctx is cancelled or one
// of them fails (e.g. the front-end stream closed).
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.serverConn.Close()
		c.feConn.Close()
	}()

	errc := make(chan error, 4)
	go func() { errc <- c.udpReceiveLoop(ctx) }()
	go func() { errc <- c.heartbeatLoop(ctx) }()
	go func() { errc <- c.feSendLoop(ctx) }()
	go func() { errc <- c.feReceiveLoop(ctx) }()

	select {
	case err := <-errc:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// udpReceiveLoop is the UDP receiver activity: it parses SERVER_MESSAGE
// datagrams and enqueues the lines the demultiplexer
// produces for the front-end.
func (c *Client) udpReceiveLoop(ctx context.Context) error {
	buf := make([]byte, 1500)
	for {
		n, err := c.serverConn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := wireproto.DecodeServerMessage(buf[:n])
		if err != nil {
			continue // malformed datagram: drop silently
		}

		c.mu.Lock()
		newLines, started := c.demux.Feed(msg)
		c.mu.Unlock()

		if started {
			// A new game began; lines still queued from the previous game
			// are stale, so drop them rather than let the front-end draw a
			// dead game's tail over the new board.
			c.drainPendingLines()
		}

		for _, line := range newLines {
			select {
			case c.lines <- line:
			default:
				c.Logger.Warn().Str("line", line).Msg("front-end queue full, dropping line")
			}
		}
	}
}

// drainPendingLines discards queued-but-unsent front-end lines. Racing
// with feSendLoop is fine: anything the sender already picked up was from
// the old game's ordered prefix, and anything still queued is dropped.
func (c *Client) drainPendingLines() {
	for {
		select {
		case <-c.lines:
		default:
			return
		}
	}
}

func (c *Client) demuxNextExpectedEvent() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.demux.NextExpectedEvent()
}
