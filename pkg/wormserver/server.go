// Package wormserver implements the authoritative worm-game server: the
// UDP receiver, the fixed-rate tick loop, the per-client event fan-out, and
// the client-table admission rules.
package wormserver

import (
	"context"
	"net"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wormnet/wormwire/pkg/wireproto"
	"github.com/wormnet/wormwire/pkg/wormgame"
	"github.com/wormnet/wormwire/pkg/wrng"
)

// Server owns the single GameState and ClientConnection table for one
// running game server. Three activities (receiver, ticker, fan-out) share
// this state under mu; the critical section each holds is
// kept short, and fan-out in particular only ever copies a snapshot under
// the lock before sending without it.
type Server struct {
	Logger zerolog.Logger
	Config Config

	conn *net.UDPConn
	rng  *wrng.Rand

	mu      sync.Mutex
	game    *wormgame.GameState
	clients *clientTable

	metrics *serverMetrics
}

// NewServer creates a Server bound to conn (already listening; see
// ListenAndServe for the common case of letting the server open its own
// dual-stack socket).
func NewServer(conn *net.UDPConn, cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		Logger:  logger,
		Config:  cfg,
		conn:    conn,
		rng:     wrng.New(cfg.Seed),
		game:    wormgame.New(cfg.BoardW, cfg.BoardH),
		clients: newClientTable(),
	}
	s.metrics = newServerMetrics(func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return float64(s.clients.len())
	})
	return s
}

// ListenAndServe opens a dual-stack UDP socket on cfg.Port ("udp" with an
// unspecified address, which on every platform Go supports binds IPv6 with
// IPV6_V6ONLY disabled so IPv4 peers arrive mapped) and runs the server
// until ctx is cancelled.
func ListenAndServe(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		return err
	}
	s := NewServer(conn, cfg, logger)
	return s.Run(ctx)
}

// Run starts the receiver, ticker, and fan-out activities and blocks until
// ctx is cancelled or the socket fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	go func() {
		errc <- s.receiveLoop(ctx)
	}()
	go s.tickLoop(ctx)
	go s.fanOutLoop(ctx)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receiveLoop is the receiver activity: it blocks on the UDP socket and
// applies each CLIENT_MESSAGE to the client table.
func (s *Server) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.metrics.datagramsRxTotal.Inc()

		msg, err := wireproto.DecodeClientMessage(buf[:n])
		if err != nil {
			s.metrics.datagramsRxDropped.Inc()
			continue
		}

		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())

		s.mu.Lock()
		s.handleClientMessage(addr, msg)
		s.mu.Unlock()
	}
}

// handleClientMessage applies the admission rules. Called with mu held.
func (s *Server) handleClientMessage(addr netip.AddrPort, msg wireproto.ClientMessage) {
	now := time.Now()
	c, known := s.clients.get(addr)

	// A non-empty player_name must stay unique across all non-spectator
	// connections other than this one; that holds for a brand-new peer and
	// for a rename by a known peer (same session or a session takeover)
	// alike, so the whole datagram is dropped before any state changes.
	if msg.PlayerName != "" && s.clients.nameTaken(msg.PlayerName, addr) {
		return // name collision: silently ignore
	}

	switch {
	case !known:
		if s.clients.len() >= MaxClients {
			return // capacity: silently ignore
		}
		c = &ClientConnection{Addr: addr, SlotIndex: -1}
		s.clients.put(c)
	case msg.SessionID < c.SessionID:
		return // stale/replay: drop
	case msg.SessionID > c.SessionID:
		s.detachFromSlot(c)
		c.ReadyToPlay = false
	default: // same session
		if now.Sub(c.LastMessageAt) < FloodGuardInterval {
			return // flood guard
		}
	}

	c.SessionID = msg.SessionID
	c.LastMessageAt = now
	c.TurnDirection = msg.TurnDirection
	c.NextExpectedEvent = msg.NextExpectedEvent

	if msg.PlayerName == "" {
		c.PlayerName = ""
		s.detachFromSlot(c)
		c.Role = RoleSpectating
	} else {
		c.PlayerName = msg.PlayerName
		if c.Role == RoleSpectating {
			c.Role = RoleWaiting
		}
	}

	if c.Role == RolePlaying && c.SlotIndex >= 0 && c.SlotIndex < len(s.game.Players) {
		s.game.Players[c.SlotIndex].TurnDirection = msg.TurnDirection
	}

	if c.Role == RoleWaiting && !s.game.InProgress && msg.TurnDirection != 0 {
		c.ReadyToPlay = true
		s.maybeStartGame()
	}
}

func (s *Server) detachFromSlot(c *ClientConnection) {
	if c.SlotIndex >= 0 && c.SlotIndex < len(s.game.Players) {
		s.game.Players[c.SlotIndex].ClientAttached = false
	}
	c.SlotIndex = -1
	if c.Role == RolePlaying {
		c.Role = RoleWaiting
	}
}

// maybeStartGame starts a game if at least MinPlayersToStart waiting
// clients are ready. Called with mu held.
func (s *Server) maybeStartGame() {
	if s.game.InProgress {
		return
	}

	var candidates []*ClientConnection
	s.clients.each(func(c *ClientConnection) {
		if c.Role == RoleWaiting && c.ReadyToPlay {
			candidates = append(candidates, c)
		}
	})

	// each iterates the client table in Go map order, which is randomized;
	// the budget prefix SelectStartRoster picks must depend on the inputs
	// alone, so fix a name order first (names are unique, so this is total).
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PlayerName < candidates[j].PlayerName
	})
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.PlayerName
	}

	roster := wormgame.SelectStartRoster(names)
	if len(roster) < wormgame.MinPlayersToStart {
		return
	}
	rosterSet := make(map[string]bool, len(roster))
	for _, n := range roster {
		rosterSet[n] = true
	}

	emitted := s.game.StartGame(s.rng, roster)
	s.metrics.gamesStartedTotal.Inc()
	s.metrics.eventsEmittedTotal.Add(len(emitted))

	// Bind each selected connection to its (now name-sorted) slot index.
	for i := range s.game.Players {
		name := s.game.Players[i].Name
		for _, c := range candidates {
			if c.PlayerName == name && rosterSet[name] {
				c.Role = RolePlaying
				c.SlotIndex = i
				break
			}
		}
	}

	// The start-of-game draw sequence can itself leave only one survivor,
	// in which case GameOver follows immediately: the freshly-bound playing
	// clients must bounce straight back to waiting.
	if len(emitted) > 0 && emitted[len(emitted)-1].Kind == wireproto.EventGameOver {
		s.resetClientsAfterGameOver()
	}
}

// tickLoop is the ticker activity: it advances the simulation at
// Config.RoundsPerSec and reaps inactive clients every ReapEveryNTicks
// rounds.
func (s *Server) tickLoop(ctx context.Context) {
	interval := time.Second / time.Duration(s.Config.RoundsPerSec)
	t := time.NewTicker(interval)
	defer t.Stop()

	var tickNo uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		start := time.Now()
		s.mu.Lock()
		emitted := s.game.Tick(s.Config.TurningSpeed)
		if len(emitted) > 0 && emitted[len(emitted)-1].Kind == wireproto.EventGameOver {
			s.resetClientsAfterGameOver()
		}
		if tickNo%ReapEveryNTicks == 0 {
			s.reapInactive(start)
		}
		s.mu.Unlock()
		tickNo++

		s.metrics.ticksTotal.Inc()
		s.metrics.tickDurationSeconds.UpdateDuration(start)
		s.metrics.eventsEmittedTotal.Add(len(emitted))
	}
}

// resetClientsAfterGameOver runs the end-of-game cleanup: every client
// still bound to a playing slot returns to waiting with ready_to_play
// cleared, so a later non-zero turn_direction can nominate it for the next
// game. Called with mu held.
func (s *Server) resetClientsAfterGameOver() {
	s.clients.each(func(c *ClientConnection) {
		if c.Role == RolePlaying {
			c.Role = RoleWaiting
			c.ReadyToPlay = false
			c.SlotIndex = -1
		}
	})
}

// reapInactive removes clients idle for more than InactivityTimeout.
// Called with mu held.
func (s *Server) reapInactive(now time.Time) {
	var stale []netip.AddrPort
	s.clients.each(func(c *ClientConnection) {
		if now.Sub(c.LastMessageAt) > InactivityTimeout {
			stale = append(stale, c.Addr)
		}
	})
	for _, addr := range stale {
		c, ok := s.clients.get(addr)
		if !ok {
			continue
		}
		if c.SlotIndex >= 0 && c.SlotIndex < len(s.game.Players) {
			// The slot itself (and its last-known turn_direction) survives
			// until GameOver: only the back-reference to
			// the departed client is cleared.
			s.game.Players[c.SlotIndex].ClientAttached = false
		}
		s.clients.delete(addr)
		s.metrics.clientsReapedTotal.Inc()
	}
}
