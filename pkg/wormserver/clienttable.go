package wormserver

import (
	"net/netip"
	"time"
)

// Role is the admission state of a ClientConnection.
type Role uint8

const (
	RoleSpectating Role = iota
	RoleWaiting
	RolePlaying
)

func (r Role) String() string {
	switch r {
	case RoleSpectating:
		return "spectating"
	case RoleWaiting:
		return "waiting"
	case RolePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// ClientConnection is the server's per-peer record. SlotIndex is
// the index into the current GameState.Players this connection is bound to,
// or -1 if it isn't attached to a slot.
type ClientConnection struct {
	Addr              netip.AddrPort
	SessionID         uint64
	PlayerName        string
	TurnDirection     int8
	NextExpectedEvent uint32
	LastMessageAt     time.Time
	ReadyToPlay       bool
	Role              Role
	SlotIndex         int
}

// clientTable holds every known ClientConnection, keyed by peer address
// (there is exactly one client per peer-address key).
type clientTable struct {
	byAddr map[netip.AddrPort]*ClientConnection
}

func newClientTable() *clientTable {
	return &clientTable{byAddr: make(map[netip.AddrPort]*ClientConnection)}
}

func (t *clientTable) get(addr netip.AddrPort) (*ClientConnection, bool) {
	c, ok := t.byAddr[addr]
	return c, ok
}

func (t *clientTable) put(c *ClientConnection) {
	t.byAddr[c.Addr] = c
}

func (t *clientTable) delete(addr netip.AddrPort) {
	delete(t.byAddr, addr)
}

func (t *clientTable) len() int {
	return len(t.byAddr)
}

// nameTaken reports whether name is already in use by a non-spectator
// connection other than skip.
func (t *clientTable) nameTaken(name string, skip netip.AddrPort) bool {
	if name == "" {
		return false
	}
	for addr, c := range t.byAddr {
		if addr == skip {
			continue
		}
		if c.Role != RoleSpectating && c.PlayerName == name {
			return true
		}
	}
	return false
}

// each calls f for every connection, in an unspecified order. f must not
// mutate the table.
func (t *clientTable) each(f func(*ClientConnection)) {
	for _, c := range t.byAddr {
		f(c)
	}
}
