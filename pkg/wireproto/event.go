// Package wireproto implements the binary wire protocol shared by the
// worm server and its clients: framing, CRC-32 validation, the event log
// record format, and the CLIENT_MESSAGE / SERVER_MESSAGE datagram layouts.
//
// All integers are big-endian.
package wireproto

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// MaxDatagramPayload is the MTU-derived ceiling on any SERVER_MESSAGE
// payload.
const MaxDatagramPayload = 512

// newGameFixedOverhead is every byte of a NewGame event other than the
// player names: the 4-byte game_id header, the event record's len/type/no/
// crc32 fields, and maxx/maxy.
const newGameFixedOverhead = 4 + 4 + 1 + 4 + 4 + 8

// NewGameNamesBudget is the maximum total bytes (each name's length plus
// its NUL terminator) of player names a single NewGame event can carry
// while still fitting in one MaxDatagramPayload-bounded datagram together
// with its 4-byte game_id header.
const NewGameNamesBudget = MaxDatagramPayload - newGameFixedOverhead

// EventKind identifies which variant of the Event sum type a record holds.
type EventKind uint8

const (
	EventNewGame EventKind = iota
	EventPixel
	EventPlayerEliminated
	EventGameOver
)

func (k EventKind) String() string {
	switch k {
	case EventNewGame:
		return "NewGame"
	case EventPixel:
		return "Pixel"
	case EventPlayerEliminated:
		return "PlayerEliminated"
	case EventGameOver:
		return "GameOver"
	default:
		return "Unknown"
	}
}

// NewGameData is the payload of the first event of every game.
type NewGameData struct {
	MaxX, MaxY  uint32
	PlayerNames []string // sorted lexicographically by the caller
}

// PixelData is the payload of a worm occupying a new cell.
type PixelData struct {
	PlayerNumber uint8
	X, Y         uint32
}

// PlayerEliminatedData is the payload of a player's elimination.
type PlayerEliminatedData struct {
	PlayerNumber uint8
}

// GameOverData is the (empty) payload of the last event of every game.
type GameOverData struct{}

// Event is one record of the server's append-only event log.
type Event struct {
	No   uint32
	Kind EventKind

	NewGame          NewGameData
	Pixel            PixelData
	PlayerEliminated PlayerEliminatedData
}

// NewNewGameEvent builds a NewGame event.
func NewNewGameEvent(no, maxx, maxy uint32, names []string) Event {
	return Event{No: no, Kind: EventNewGame, NewGame: NewGameData{MaxX: maxx, MaxY: maxy, PlayerNames: names}}
}

// NewPixelEvent builds a Pixel event.
func NewPixelEvent(no uint32, player uint8, x, y uint32) Event {
	return Event{No: no, Kind: EventPixel, Pixel: PixelData{PlayerNumber: player, X: x, Y: y}}
}

// NewPlayerEliminatedEvent builds a PlayerEliminated event.
func NewPlayerEliminatedEvent(no uint32, player uint8) Event {
	return Event{No: no, Kind: EventPlayerEliminated, PlayerEliminated: PlayerEliminatedData{PlayerNumber: player}}
}

// NewGameOverEvent builds a GameOver event.
func NewGameOverEvent(no uint32) Event {
	return Event{No: no, Kind: EventGameOver}
}

var (
	ErrRecordTruncated = errors.New("wireproto: event record truncated")
	ErrRecordTooShort  = errors.New("wireproto: event record shorter than header")
	ErrCRCMismatch     = errors.New("wireproto: crc32 mismatch")
	ErrUnknownKind     = errors.New("wireproto: unknown event type")
)

// crcChecksum is the protocol's CRC-32 variant: polynomial 0x04C11DB7
// reflected, init/final 0xFFFFFFFF (the ISO-HDLC/gzip CRC-32, which is
// exactly what Go's standard IEEE table computes).
func crcChecksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// AppendEvent appends the wire encoding of ev to dst and returns the
// extended slice.
func AppendEvent(dst []byte, ev Event) []byte {
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0) // len placeholder
	dst = append(dst, byte(ev.Kind))
	dst = binary.BigEndian.AppendUint32(dst, ev.No)

	switch ev.Kind {
	case EventNewGame:
		dst = binary.BigEndian.AppendUint32(dst, ev.NewGame.MaxX)
		dst = binary.BigEndian.AppendUint32(dst, ev.NewGame.MaxY)
		for _, n := range ev.NewGame.PlayerNames {
			dst = append(dst, n...)
			dst = append(dst, 0)
		}
	case EventPixel:
		dst = append(dst, ev.Pixel.PlayerNumber)
		dst = binary.BigEndian.AppendUint32(dst, ev.Pixel.X)
		dst = binary.BigEndian.AppendUint32(dst, ev.Pixel.Y)
	case EventPlayerEliminated:
		dst = append(dst, ev.PlayerEliminated.PlayerNumber)
	case EventGameOver:
		// no payload
	}

	// len covers event_type through end of event_data, exclusive of crc32.
	length := uint32(len(dst) - start - 4)
	binary.BigEndian.PutUint32(dst[start:], length)

	crc := crcChecksum(dst[start+4:])
	dst = binary.BigEndian.AppendUint32(dst, crc)
	return dst
}

// EncodeEvent returns the standalone wire encoding of ev.
func EncodeEvent(ev Event) []byte {
	return AppendEvent(nil, ev)
}

// EventEncodedLen returns the number of bytes EncodeEvent(ev) would produce,
// without allocating.
func EventEncodedLen(ev Event) int {
	n := 4 + 1 + 4 + 4 // len + event_type + event_no + crc32
	switch ev.Kind {
	case EventNewGame:
		n += 8
		for _, p := range ev.NewGame.PlayerNames {
			n += len(p) + 1
		}
	case EventPixel:
		n += 9
	case EventPlayerEliminated:
		n += 1
	case EventGameOver:
	}
	return n
}

// DecodeEvent parses a single event record from the head of buf. It returns
// the parsed event and the number of bytes consumed. A record whose
// declared len overruns the buffer, whose CRC does not match, or whose
// event_type is unrecognized, is rejected.
func DecodeEvent(buf []byte) (Event, int, error) {
	if len(buf) < 9 {
		return Event{}, 0, ErrRecordTooShort
	}
	length := binary.BigEndian.Uint32(buf)
	total := 4 + int(length) + 4
	if length < 5 || total < 0 || total > len(buf) {
		return Event{}, 0, ErrRecordTruncated
	}

	record := buf[:total]
	gotCRC := binary.BigEndian.Uint32(record[total-4:])
	wantCRC := crcChecksum(record[4 : total-4])
	if gotCRC != wantCRC {
		return Event{}, 0, ErrCRCMismatch
	}

	kind := EventKind(record[4])
	no := binary.BigEndian.Uint32(record[5:9])
	data := record[9 : total-4]

	ev := Event{No: no, Kind: kind}
	switch kind {
	case EventNewGame:
		if len(data) < 8 {
			return Event{}, 0, ErrRecordTruncated
		}
		ev.NewGame.MaxX = binary.BigEndian.Uint32(data)
		ev.NewGame.MaxY = binary.BigEndian.Uint32(data[4:])
		rest := data[8:]
		for len(rest) > 0 {
			i := indexByte(rest, 0)
			if i < 0 {
				return Event{}, 0, ErrRecordTruncated
			}
			ev.NewGame.PlayerNames = append(ev.NewGame.PlayerNames, string(rest[:i]))
			rest = rest[i+1:]
		}
	case EventPixel:
		if len(data) != 9 {
			return Event{}, 0, ErrRecordTruncated
		}
		ev.Pixel.PlayerNumber = data[0]
		ev.Pixel.X = binary.BigEndian.Uint32(data[1:])
		ev.Pixel.Y = binary.BigEndian.Uint32(data[5:])
	case EventPlayerEliminated:
		if len(data) != 1 {
			return Event{}, 0, ErrRecordTruncated
		}
		ev.PlayerEliminated.PlayerNumber = data[0]
	case EventGameOver:
		if len(data) != 0 {
			return Event{}, 0, ErrRecordTruncated
		}
	default:
		return Event{}, 0, ErrUnknownKind
	}

	return ev, total, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
