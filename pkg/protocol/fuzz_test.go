package protocol

import (
	"bytes"
	"testing"
)

// FuzzDecodeUvarint tests that decoding arbitrary bytes doesn't panic and
// that every accepted value re-encodes to the same bytes.
func FuzzDecodeUvarint(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x7F})
	f.Add([]byte{0x80, 0x01})
	f.Add([]byte{0xAC, 0x02})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, n := DecodeUvarint(data)
		if n <= 0 {
			return
		}
		if n != UvarintLen(v) {
			return // non-minimal encodings such as 80 00 are accepted
		}
		if got := AppendUvarint(nil, v); !bytes.Equal(got, data[:n]) {
			t.Errorf("re-encode of %d = % x, want % x", v, got, data[:n])
		}
	})
}

// FuzzDecodePackets tests that splitting arbitrary bytes doesn't panic and
// never loses bytes.
func FuzzDecodePackets(f *testing.F) {
	hb, _ := Frame(PacketHeartbeat, nil)
	data, _ := Frame(PacketData, []byte{0x00, 0x01, 0x03, 'a', '.', 'b'})
	f.Add(hb)
	f.Add(append(append([]byte{}, hb...), data...))
	f.Add([]byte{0x04, 0x00, 0x00, 0x05, 0x01})
	f.Add([]byte{0x09, 0x00, 0x00, 0x00})
	f.Add([]byte{0x04, 0x01, 0x00, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		packets, remainder, err := DecodePackets(data)
		consumed := 0
		for _, p := range packets {
			if !p.Type.Valid() || p.Length != len(p.Body) || p.Length > MaxPacketSize {
				t.Fatalf("invalid packet %+v", p)
			}
			consumed += PacketHeaderSize + p.Length
		}
		if consumed+len(remainder) != len(data) {
			t.Fatalf("consumed %d + remainder %d != input %d (err %v)", consumed, len(remainder), len(data), err)
		}
	})
}

// FuzzPacketBuffer tests that feeding a stream in two chunks yields the same
// packets as decoding it at once.
func FuzzPacketBuffer(f *testing.F) {
	hb, _ := Frame(PacketHeartbeat, nil)
	kick, _ := Frame(PacketKick, []byte(`{"reason":"x"}`))
	f.Add(append(append([]byte{}, hb...), kick...), 3)
	f.Add(kick, 0)

	f.Fuzz(func(t *testing.T, data []byte, split int) {
		want, _, wantErr := DecodePackets(data)
		if wantErr != nil {
			return
		}
		if split < 0 || split > len(data) {
			split = len(data) / 2
		}

		buf := NewPacketBuffer()
		first, err := buf.Feed(data[:split])
		if err != nil {
			t.Fatalf("Feed(first) error = %v", err)
		}
		second, err := buf.Feed(data[split:])
		if err != nil {
			t.Fatalf("Feed(second) error = %v", err)
		}

		got := append(first, second...)
		if len(got) != len(want) {
			t.Fatalf("got %d packets, want %d", len(got), len(want))
		}
		for i := range got {
			if got[i].Type != want[i].Type || !bytes.Equal(got[i].Body, want[i].Body) {
				t.Errorf("packet %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

// FuzzDecodeMessage tests that decoding arbitrary bytes doesn't panic and
// that decoded uncompressed messages re-encode to an equivalent message.
func FuzzDecodeMessage(f *testing.F) {
	for _, m := range []*Message{
		NewRequest(1, "connector.getsessiondata", []byte(`{}`)),
		NewNotify("chat.send", []byte("hi")),
		NewResponse(300, []byte(`{"ok":true}`)),
		NewErrorResponse(7, []byte(`{"code":"PIT-400"}`)),
		NewPush("onMembers", nil),
	} {
		b, _ := EncodeMessage(m, testDict)
		f.Add(b)
	}
	f.Add([]byte{0x37, 0x00, 0x04})
	f.Add([]byte{0x00, 0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeMessage(data, testDict)
		if err != nil || m.Gzipped {
			return
		}
		encoded, err := EncodeMessage(m, testDict)
		if err != nil {
			t.Fatalf("EncodeMessage(%v) error = %v", m, err)
		}
		again, err := DecodeMessage(encoded, testDict)
		if err != nil {
			t.Fatalf("DecodeMessage(re-encoded) error = %v", err)
		}
		if again.Type != m.Type || again.ID != m.ID || again.Route != m.Route ||
			again.Err != m.Err || !bytes.Equal(again.Body, m.Body) {
			t.Errorf("re-decoded %v, want %v", again, m)
		}
	})
}
