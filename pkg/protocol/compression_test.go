package protocol

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"testing"
)

func TestCompressDecompress(t *testing.T) {
	data := bytes.Repeat([]byte(`{"players":[1,2,3]}`), 50)

	tests := []struct {
		comp  Compression
		level int
	}{
		{CompressionZlib, DefaultCompressionLevel},
		{CompressionZlib, flate.NoCompression},
		{CompressionZlib, flate.BestSpeed},
		{CompressionGzip, DefaultCompressionLevel},
		{CompressionGzip, flate.BestCompression},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%v/%d", tc.comp, tc.level), func(t *testing.T) {
			compressed, err := Compress(tc.comp, tc.level, data)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if !IsCompressed(compressed) {
				t.Errorf("IsCompressed() = false for %v output", tc.comp)
			}
			out, err := Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Errorf("Decompress() mismatch")
			}
		})
	}
}

func TestCompressNoneIsIdentity(t *testing.T) {
	data := []byte("raw")
	out, err := Compress(CompressionNone, 0, data)
	if err != nil || !bytes.Equal(out, data) {
		t.Errorf("Compress(none) = %q, %v", out, err)
	}
}

func TestCompressInvalidLevel(t *testing.T) {
	if _, err := Compress(CompressionZlib, 42, []byte("x")); err == nil {
		t.Errorf("Compress() with level 42 succeeded")
	}
}

func TestCompressNoCompressionLevel(t *testing.T) {
	data := []byte("stored block payload")
	out, err := Compress(CompressionZlib, flate.NoCompression, data)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if !bytes.Contains(out, data) {
		t.Errorf("level %d output % x does not hold the data verbatim", flate.NoCompression, out)
	}
}

func TestDecompressSizeLimit(t *testing.T) {
	for _, comp := range []Compression{CompressionZlib, CompressionGzip} {
		t.Run(comp.String(), func(t *testing.T) {
			bomb, err := Compress(comp, flate.BestCompression, make([]byte, MaxDecompressedSize+1))
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if len(bomb) > MaxPacketSize {
				t.Fatalf("compressed size %d does not fit a packet", len(bomb))
			}
			_, err = Decompress(bomb)
			if !errors.Is(err, ErrDecompressedTooLarge) || !errors.Is(err, ErrDecompress) {
				t.Errorf("Decompress() error = %v, want ErrDecompressedTooLarge", err)
			}

			limit, err := Compress(comp, flate.BestCompression, make([]byte, MaxDecompressedSize))
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			out, err := Decompress(limit)
			if err != nil || len(out) != MaxDecompressedSize {
				t.Errorf("Decompress() at the limit = %d bytes, %v", len(out), err)
			}
		})
	}
}

func TestDecompressCorrupt(t *testing.T) {
	good, _ := Compress(CompressionZlib, DefaultCompressionLevel, bytes.Repeat([]byte("a"), 100))
	truncated := good[:len(good)/2]

	for _, data := range [][]byte{nil, []byte("plain"), truncated} {
		if _, err := Decompress(data); !errors.Is(err, ErrDecompress) {
			t.Errorf("Decompress(% x) error = %v, want ErrDecompress", data, err)
		}
	}
}

func TestIsCompressed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"json", []byte(`{"code":200}`), false},
		{"empty", nil, false},
		{"gzip_magic", []byte{0x1f, 0x8b, 0x08}, true},
		{"zlib_default", []byte{0x78, 0x9c}, true},
		{"zlib_best", []byte{0x78, 0xda}, true},
		{"zlib_bad_check", []byte{0x78, 0x9d}, false},
	}

	for _, tc := range tests {
		if got := IsCompressed(tc.data); got != tc.want {
			t.Errorf("IsCompressed(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"ZLIB", CompressionZlib, false},
		{"deflate", CompressionZlib, false},
		{" gzip ", CompressionGzip, false},
		{"brotli", CompressionNone, true},
	}

	for _, tc := range tests {
		got, err := ParseCompression(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseCompression(%q) = %v, %v", tc.in, got, err)
		}
	}
}
