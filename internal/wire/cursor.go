// Package wire implements the Bitcoin byte-cursor codec: fixed-width
// little-endian integers and the variable-length integer encoding used
// throughout transaction serialization.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortRead is returned whenever a cursor is asked to read more bytes
// than remain.
var ErrShortRead = errors.New("wire: short read")

// ErrBadVarint is returned when a varint prefix byte implies a length that
// the remaining buffer cannot satisfy, or an encoding uses more bytes than
// the minimal form requires.
var ErrBadVarint = errors.New("wire: bad varint")

// Reader is a forward-only cursor over an immutable byte slice.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading starting at position 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Read returns the next n bytes and advances the cursor.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errors.Wrapf(ErrShortRead, "want %d bytes, have %d", n, r.Len())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadReverse reads n bytes and returns them in reverse order, the shape
// a txid takes on the wire relative to its hex rendering.
func (r *Reader) ReadReverse(n int) ([]byte, error) {
	b, err := r.Read(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[n-1-i] = v
	}
	return out, nil
}

// ReadRemainder returns every byte not yet consumed.
func (r *Reader) ReadRemainder() []byte {
	out := r.buf[r.pos:]
	r.pos = len(r.buf)
	return out
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadVarInt reads a Bitcoin varint: prefix < 0xFD is the value itself,
// 0xFD/0xFE/0xFF signal a following u16LE/u32LE/u64LE payload.
func (r *Reader) ReadVarInt() (uint64, error) {
	prefix, err := r.ReadU8()
	if err != nil {
		return 0, errors.Wrap(err, "varint prefix")
	}
	switch prefix {
	case 0xFD:
		v, err := r.ReadU16LE()
		if err != nil {
			return 0, errors.Wrap(ErrBadVarint, err.Error())
		}
		if v < 0xFD {
			return 0, errors.Wrap(ErrBadVarint, "non-minimal encoding")
		}
		return uint64(v), nil
	case 0xFE:
		v, err := r.ReadU32LE()
		if err != nil {
			return 0, errors.Wrap(ErrBadVarint, err.Error())
		}
		if v <= 0xFFFF {
			return 0, errors.Wrap(ErrBadVarint, "non-minimal encoding")
		}
		return uint64(v), nil
	case 0xFF:
		v, err := r.ReadU64LE()
		if err != nil {
			return 0, errors.Wrap(ErrBadVarint, err.Error())
		}
		if v <= 0xFFFFFFFF {
			return 0, errors.Wrap(ErrBadVarint, "non-minimal encoding")
		}
		return v, nil
	default:
		return uint64(prefix), nil
	}
}

// Writer accumulates bytes for a serialized wire payload.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer, optionally pre-sized.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Write appends raw bytes.
func (w *Writer) Write(b []byte) { w.buf = append(w.buf, b...) }

// WriteReverse appends b in reverse order.
func (w *Writer) WriteReverse(b []byte) {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	w.buf = append(w.buf, out...)
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

// WriteU16LE appends a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU32LE appends a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU64LE appends a little-endian uint64.
func (w *Writer) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteVarInt appends v using the minimal Bitcoin varint encoding.
func (w *Writer) WriteVarInt(v uint64) {
	switch {
	case v < 0xFD:
		w.WriteU8(uint8(v))
	case v <= 0xFFFF:
		w.WriteU8(0xFD)
		w.WriteU16LE(uint16(v))
	case v <= 0xFFFFFFFF:
		w.WriteU8(0xFE)
		w.WriteU32LE(uint32(v))
	default:
		w.WriteU8(0xFF)
		w.WriteU64LE(v)
	}
}

// VarIntLen returns the number of bytes WriteVarInt would emit for v.
func VarIntLen(v uint64) int {
	switch {
	case v < 0xFD:
		return 1
	case v <= 0xFFFF:
		return 3
	case v <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}
