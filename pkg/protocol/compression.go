package protocol

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"
)

// MaxDecompressedSize caps the inflated size of a compressed body. A
// packet carries at most MaxPacketSize bytes, so this allows a 16:1 ratio.
const MaxDecompressedSize = 16 * MaxPacketSize

// DefaultCompressionLevel is the level a Codec uses unless
// WithCompressionLevel overrides it.
const DefaultCompressionLevel = flate.DefaultCompression

// Compression selects how message bodies are compressed on encode.
type Compression uint8

const (
	CompressionNone Compression = iota // Never compress
	CompressionZlib                    // zlib stream, what Pitaya peers emit
	CompressionGzip                    // gzip member
)

// String returns the configuration name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseCompression parses a configuration name ("none", "zlib", "gzip").
// The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return CompressionNone, nil
	case "zlib", "deflate":
		return CompressionZlib, nil
	case "gzip":
		return CompressionGzip, nil
	default:
		return CompressionNone, fmt.Errorf("protocol: unknown compression %q", s)
	}
}

// Compress compresses data with the given format at the given
// compress/flate level. flate.NoCompression (0) emits stored blocks.
func Compress(c Compression, level int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case CompressionZlib:
		w, err = zlib.NewWriterLevel(&buf, level)
	case CompressionGzip:
		w, err = gzip.NewWriterLevel(&buf, level)
	default:
		return data, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates data, detecting gzip by its magic bytes and
// assuming zlib otherwise. Output beyond MaxDecompressedSize fails with
// ErrDecompressedTooLarge.
func Decompress(data []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	if isGzip(data) {
		r, err = gzip.NewReader(bytes.NewReader(data))
	} else {
		r, err = zlib.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDecompressedTooLarge, MaxDecompressedSize)
	}
	return out, nil
}

// IsCompressed reports whether data starts with a gzip or zlib header.
func IsCompressed(data []byte) bool {
	return isGzip(data) || isZlib(data)
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// isZlib checks the CMF/FLG pair: deflate method, window <= 32K and the
// header checksum.
func isZlib(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}
