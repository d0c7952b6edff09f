package wireproto

import (
	"encoding/binary"
	"errors"
)

// ClientMessageMinLen is the minimum valid CLIENT_MESSAGE length: the
// fixed header (session_id, turn_direction, next_expected_event) with an
// empty (spectator) player_name.
const ClientMessageMinLen = 13

// MaxPlayerNameLen is the maximum length of a player name, in bytes.
const MaxPlayerNameLen = 64

var (
	ErrDatagramTooShort  = errors.New("wireproto: datagram shorter than header")
	ErrTurnDirectionBad  = errors.New("wireproto: turn_direction out of range")
	ErrPlayerNameTooLong = errors.New("wireproto: player name too long")
	ErrPlayerNameBad     = errors.New("wireproto: player name not printable ASCII or contains a space")
)

// ClientMessage is the CLIENT_MESSAGE datagram.
type ClientMessage struct {
	SessionID         uint64
	TurnDirection     int8 // -1, 0, or 1
	NextExpectedEvent uint32
	PlayerName        string // empty means spectator
}

// EncodeClientMessage returns the wire encoding of m.
func EncodeClientMessage(m ClientMessage) []byte {
	b := make([]byte, ClientMessageMinLen+len(m.PlayerName))
	binary.BigEndian.PutUint64(b, m.SessionID)
	b[8] = byte(m.TurnDirection)
	binary.BigEndian.PutUint32(b[9:], m.NextExpectedEvent)
	copy(b[13:], m.PlayerName)
	return b
}

// DecodeClientMessage parses a CLIENT_MESSAGE datagram. Any datagram
// shorter than the 13-byte header, with an out-of-range turn_direction, or
// with a malformed name, must be dropped silently; callers should treat a
// non-nil error as "drop this datagram" with no further logging of the peer.
func DecodeClientMessage(buf []byte) (ClientMessage, error) {
	if len(buf) < ClientMessageMinLen {
		return ClientMessage{}, ErrDatagramTooShort
	}

	var m ClientMessage
	m.SessionID = binary.BigEndian.Uint64(buf)

	td := int8(buf[8])
	if td < -1 || td > 1 {
		return ClientMessage{}, ErrTurnDirectionBad
	}
	m.TurnDirection = td

	m.NextExpectedEvent = binary.BigEndian.Uint32(buf[9:13])

	name := buf[13:]
	if err := ValidatePlayerName(name, true); err != nil {
		return ClientMessage{}, err
	}
	m.PlayerName = string(name)

	return m, nil
}

// ValidatePlayerName checks that name is 1-64 (or 0-64 if allowEmpty)
// printable ASCII bytes containing no spaces.
func ValidatePlayerName(name []byte, allowEmpty bool) error {
	if len(name) == 0 {
		if allowEmpty {
			return nil
		}
		return ErrPlayerNameBad
	}
	if len(name) > MaxPlayerNameLen {
		return ErrPlayerNameTooLong
	}
	for _, c := range name {
		if c == ' ' || c < 0x20 || c > 0x7e {
			return ErrPlayerNameBad
		}
	}
	return nil
}

// ServerMessage is the SERVER_MESSAGE datagram: a game id
// followed by a concatenation of one or more Event records.
type ServerMessage struct {
	GameID uint32
	Events []Event
}

// DecodeServerMessage parses a SERVER_MESSAGE datagram. When a datagram
// contains several events, the well-formed prefix is accepted and the
// first malformed record (and
// everything after it) is silently dropped; this function only returns an
// error if even the 4-byte game_id header is missing.
func DecodeServerMessage(buf []byte) (ServerMessage, error) {
	if len(buf) < 4 {
		return ServerMessage{}, ErrDatagramTooShort
	}

	msg := ServerMessage{GameID: binary.BigEndian.Uint32(buf)}
	rest := buf[4:]
	for len(rest) > 0 {
		ev, n, err := DecodeEvent(rest)
		if err != nil {
			break
		}
		msg.Events = append(msg.Events, ev)
		rest = rest[n:]
	}
	return msg, nil
}

// PackEvents splits events into one or more SERVER_MESSAGE datagrams for
// gameID, each no larger than MaxDatagramPayload bytes, in order, without
// splitting a single event record across datagrams.
//
// A caller must ensure no single event (plus the 4-byte game_id header)
// exceeds MaxDatagramPayload on its own; PackEvents panics if one does,
// since that would indicate a NewGame event was constructed over the
// NewGameNamesBudget.
func PackEvents(gameID uint32, events []Event) [][]byte {
	var datagrams [][]byte
	var cur []byte

	flush := func() {
		if len(cur) > 4 {
			datagrams = append(datagrams, cur)
		}
		cur = nil
	}

	for _, ev := range events {
		n := EventEncodedLen(ev)
		if 4+n > MaxDatagramPayload {
			panic("wireproto: event exceeds MaxDatagramPayload on its own")
		}
		if cur == nil {
			cur = make([]byte, 4, 4+n)
			binary.BigEndian.PutUint32(cur, gameID)
		} else if len(cur)+n > MaxDatagramPayload {
			flush()
			cur = make([]byte, 4, 4+n)
			binary.BigEndian.PutUint32(cur, gameID)
		}
		cur = AppendEvent(cur, ev)
	}
	flush()

	return datagrams
}
