package protocol

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecodeUvarint(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bytes int // expected encoded length
	}{
		{"zero", 0, 1},
		{"one", 1, 1},
		{"max_1byte", 127, 1},
		{"min_2byte", 128, 2},
		{"max_2byte", 16383, 2},
		{"min_3byte", 16384, 3},
		{"medium", 1000000, 3},
		{"large", 1 << 28, 5},
		{"max_uint32", math.MaxUint32, 5},
		{"max_uint64", math.MaxUint64, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, MaxVarintLen)
			n := EncodeUvarint(buf, tc.value)

			if n != tc.bytes {
				t.Errorf("EncodeUvarint(%d) = %d bytes, want %d", tc.value, n, tc.bytes)
			}
			if UvarintLen(tc.value) != n {
				t.Errorf("UvarintLen(%d) = %d, want %d", tc.value, UvarintLen(tc.value), n)
			}

			decoded, read := DecodeUvarint(buf[:n])
			if read != n {
				t.Errorf("DecodeUvarint read %d bytes, want %d", read, n)
			}
			if decoded != tc.value {
				t.Errorf("DecodeUvarint = %d, want %d", decoded, tc.value)
			}
		})
	}
}

func TestUvarintWireBytes(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
	}

	for _, tc := range tests {
		got := AppendUvarint(nil, tc.value)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("AppendUvarint(%d) = % x, want % x", tc.value, got, tc.want)
		}
		v, n := DecodeUvarint(tc.want)
		if v != tc.value || n != len(tc.want) {
			t.Errorf("DecodeUvarint(% x) = %d, %d; want %d, %d", tc.want, v, n, tc.value, len(tc.want))
		}
	}
}

func TestDecodeUvarintIncomplete(t *testing.T) {
	for _, buf := range [][]byte{nil, {0x80}, {0xFF, 0xFF}} {
		if _, n := DecodeUvarint(buf); n != -1 {
			t.Errorf("DecodeUvarint(% x) n = %d, want -1", buf, n)
		}
	}
}

func TestDecodeUvarintOverflow(t *testing.T) {
	// 10th byte may only carry bit 63.
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}
	if _, n := DecodeUvarint(buf); n != -2 {
		t.Errorf("DecodeUvarint n = %d, want -2", n)
	}

	buf = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x81, 0x00}
	if _, n := DecodeUvarint(buf); n != -2 {
		t.Errorf("DecodeUvarint continuation past 10 bytes n = %d, want -2", n)
	}
}

func TestUvarintLen(t *testing.T) {
	for shift := uint(0); shift < 64; shift++ {
		v := uint64(1) << shift
		want := int(shift/7) + 1
		if got := UvarintLen(v); got != want {
			t.Errorf("UvarintLen(1<<%d) = %d, want %d", shift, got, want)
		}
	}
}
