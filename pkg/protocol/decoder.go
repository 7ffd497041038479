package protocol

import "io"

// Decoder is a read cursor over a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Skip advances the position by n bytes.
func (d *Decoder) Skip(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return io.ErrUnexpectedEOF
	}
	d.pos += n
	return nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := DecodeUvarint(d.buf[d.pos:])
	switch {
	case n == varintIncomplete:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint24 reads a 24-bit big-endian unsigned integer.
func (d *Decoder) ReadUint24() (uint32, error) {
	if d.pos+3 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<16 | uint32(d.buf[d.pos+1])<<8 | uint32(d.buf[d.pos+2])
	d.pos += 3
	return v, nil
}

// ReadShortString reads a string prefixed by a single length byte.
func (d *Decoder) ReadShortString() (string, error) {
	n, err := d.ReadByte()
	if err != nil {
		return "", err
	}
	b, err := d.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Rest returns a copy of all unread bytes and moves the cursor to the end.
func (d *Decoder) Rest() []byte {
	rest := make([]byte, len(d.buf)-d.pos)
	copy(rest, d.buf[d.pos:])
	d.pos = len(d.buf)
	return rest
}
