package wireproto

import "testing"

func TestClientMessageRoundTrip(t *testing.T) {
	tests := []ClientMessage{
		{SessionID: 1, TurnDirection: 0, NextExpectedEvent: 0, PlayerName: ""},
		{SessionID: 1234567890, TurnDirection: -1, NextExpectedEvent: 42, PlayerName: "Alice"},
		{SessionID: 1, TurnDirection: 1, NextExpectedEvent: 0, PlayerName: string(make([]byte, MaxPlayerNameLen))},
	}
	// the last case needs printable bytes, not NULs
	tests[2].PlayerName = ""
	for i := 0; i < MaxPlayerNameLen; i++ {
		tests[2].PlayerName += "x"
	}

	for _, m := range tests {
		b := EncodeClientMessage(m)
		got, err := DecodeClientMessage(b)
		if err != nil {
			t.Fatalf("DecodeClientMessage(%+v): %v", m, err)
		}
		if got != m {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, m)
		}
	}
}

func TestDecodeClientMessageRejectsShort(t *testing.T) {
	for n := 0; n < ClientMessageMinLen; n++ {
		if _, err := DecodeClientMessage(make([]byte, n)); err == nil {
			t.Errorf("DecodeClientMessage(%d bytes) succeeded, want error", n)
		}
	}
}

func TestDecodeClientMessageRejectsBadTurnDirection(t *testing.T) {
	m := ClientMessage{SessionID: 1, TurnDirection: 0, NextExpectedEvent: 0}
	b := EncodeClientMessage(m)
	for _, td := range []int8{2, -2, 127, -128} {
		b[8] = byte(td)
		if _, err := DecodeClientMessage(b); err == nil {
			t.Errorf("turn_direction=%d accepted, want rejection", td)
		}
	}
}

func TestDecodeClientMessageRejectsBadName(t *testing.T) {
	base := EncodeClientMessage(ClientMessage{SessionID: 1})

	withName := func(name []byte) []byte {
		b := make([]byte, len(base)+len(name))
		copy(b, base)
		copy(b[len(base):], name)
		return b
	}

	if _, err := DecodeClientMessage(withName([]byte("has space"))); err == nil {
		t.Error("name with space accepted")
	}
	if _, err := DecodeClientMessage(withName([]byte{0x01})); err == nil {
		t.Error("non-printable name accepted")
	}
	if _, err := DecodeClientMessage(withName(make([]byte, MaxPlayerNameLen+1))); err == nil {
		t.Error("over-length name accepted")
	}
}

func TestValidatePlayerNameEmptyRequiresSpectator(t *testing.T) {
	if err := ValidatePlayerName(nil, false); err == nil {
		t.Error("empty name accepted when allowEmpty=false")
	}
	if err := ValidatePlayerName(nil, true); err != nil {
		t.Errorf("empty name rejected when allowEmpty=true: %v", err)
	}
}
