/*
NAME
  writer.go - provides a bit-granular writer used to serialize IAMF OBU
  payloads.

DESCRIPTION
  Writer accumulates bits MSB-first into a byte buffer, mirroring the
  accumulator design of codec/h264/h264dec/bits.BitReader but for writing,
  and adds the ULEB128 variable-length integer encoding IAMF uses for
  obu_size and every other variable-length field.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides bit-granular reading and writing of IAMF OBU
// payloads, including the ULEB128 variable-length integer encoding.
package bits

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// MaxBytes bounds how large a single OBU payload scratch buffer may grow;
// the IAMF spec caps an entire OBU (header + payload) at 2 MiB.
const MaxBytes = 2 * 1024 * 1024

// ErrResourceExhausted is returned when a write would exceed the writer's
// capacity. A read that asks for more bytes than remain in the buffer
// returns ErrNeedMoreData instead.
var ErrResourceExhausted = errors.New("bits: resource exhausted")

// ErrInvalidArgument is returned for malformed call arguments, such as a
// value that doesn't fit the requested bit width.
var ErrInvalidArgument = errors.New("bits: invalid argument")

// Writer accumulates bits MSB-first into a byte slice. The zero value is
// usable; Bytes and related fields grow without a fixed capacity until
// MaxBytes is reached.
type Writer struct {
	buf     []byte
	nbits   int // number of valid bits in the current (trailing) partial byte
	leb     Uleb128Policy
}

// NewWriter returns a Writer using policy for ULEB128 encoding. The zero
// Uleb128Policy value means Minimal.
func NewWriter(policy Uleb128Policy) *Writer {
	return &Writer{leb: policy}
}

// PolicyForScratch returns the ULEB128 policy this writer is using, so
// callers can create a scratch Writer (e.g. to measure a field's encoded
// size before writing it for real) that stays consistent with this one.
func (w *Writer) PolicyForScratch() Uleb128Policy {
	return w.leb
}

// Bytes returns the accumulated byte-aligned bytes written so far. The
// caller must ensure the writer IsByteAligned before calling; any trailing
// partial byte is included zero-padded.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of complete bytes written, including any trailing
// zero-padded partial byte.
func (w *Writer) Len() int {
	return len(w.buf)
}

// IsByteAligned reports whether the writer's cursor sits on a byte
// boundary.
func (w *Writer) IsByteAligned() bool {
	return w.nbits == 0
}

// ByteAlign pads the current partial byte with zero bits until the writer
// is byte aligned. It is a no-op if already aligned.
func (w *Writer) ByteAlign() {
	if w.nbits == 0 {
		return
	}
	w.nbits = 0
}

// WriteUnsignedLiteral writes the low bitCount bits of value, MSB-first.
// bitCount must be in [0, 64]. Fails if value has a set bit at position
// >= bitCount.
func (w *Writer) WriteUnsignedLiteral(value uint64, bitCount int) error {
	if bitCount < 0 || bitCount > 64 {
		return errors.Wrapf(ErrInvalidArgument, "bit count %d out of range", bitCount)
	}
	if bitCount < 64 && value>>uint(bitCount) != 0 {
		return errors.Wrapf(ErrInvalidArgument, "value %d does not fit in %d bits", value, bitCount)
	}
	if len(w.buf)+bitCount/8+1 > MaxBytes {
		return errors.Wrapf(ErrResourceExhausted, "writer capacity (%d bytes) exceeded", MaxBytes)
	}
	for i := bitCount - 1; i >= 0; i-- {
		bit := byte((value >> uint(i)) & 1)
		w.writeBit(bit)
	}
	return nil
}

// writeBit appends a single bit to the buffer, extending it when the
// current trailing byte is full.
func (w *Writer) writeBit(bit byte) {
	if w.nbits == 0 {
		w.buf = append(w.buf, 0)
	}
	idx := len(w.buf) - 1
	w.buf[idx] |= bit << uint(7-w.nbits)
	w.nbits = (w.nbits + 1) % 8
}

// WriteSignedLiteral writes value in bitCount bits of two's-complement
// encoding. Fails if value does not fit.
func (w *Writer) WriteSignedLiteral(value int64, bitCount int) error {
	if bitCount <= 0 || bitCount > 64 {
		return errors.Wrapf(ErrInvalidArgument, "bit count %d out of range", bitCount)
	}
	min := -(int64(1) << uint(bitCount-1))
	max := int64(1)<<uint(bitCount-1) - 1
	if value < min || value > max {
		return errors.Wrapf(ErrInvalidArgument, "value %d does not fit in a signed %d-bit field", value, bitCount)
	}
	mask := uint64(1)<<uint(bitCount) - 1
	return w.WriteUnsignedLiteral(uint64(value)&mask, bitCount)
}

// WriteSigned16 writes value as a big-endian signed 16-bit integer.
func (w *Writer) WriteSigned16(value int16) error {
	return w.WriteSignedLiteral(int64(value), 16)
}

// WriteSigned32 writes value as a big-endian signed 32-bit integer.
func (w *Writer) WriteSigned32(value int32) error {
	return w.WriteSignedLiteral(int64(value), 32)
}

// WriteUleb128 encodes value using the writer's active ULEB128 policy.
func (w *Writer) WriteUleb128(value uint64) error {
	if value > 0xFFFFFFFF {
		return errors.Wrapf(ErrInvalidArgument, "value %d exceeds uint32 range for a uleb128 field", value)
	}
	enc, err := EncodeUleb128(value, w.leb)
	if err != nil {
		return err
	}
	return w.WriteUint8Span(enc)
}

// WriteUint8Span writes raw bytes. The writer must be byte aligned.
func (w *Writer) WriteUint8Span(data []byte) error {
	if !w.IsByteAligned() {
		return errors.Wrap(ErrInvalidArgument, "writer must be byte aligned to write raw bytes")
	}
	if len(w.buf)+len(data) > MaxBytes {
		return errors.Wrapf(ErrResourceExhausted, "writer capacity (%d bytes) exceeded", MaxBytes)
	}
	w.buf = append(w.buf, data...)
	return nil
}

// WriteString writes s followed by a NUL terminator. s must be valid UTF-8
// and must not contain an interior NUL byte.
func (w *Writer) WriteString(s string) error {
	if !utf8.ValidString(s) {
		return errors.Wrap(ErrInvalidArgument, "string is not valid UTF-8")
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return errors.Wrap(ErrInvalidArgument, "string contains an interior NUL byte")
		}
	}
	if err := w.WriteUint8Span([]byte(s)); err != nil {
		return err
	}
	return w.WriteUint8Span([]byte{0})
}
