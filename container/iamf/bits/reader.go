/*
NAME
  reader.go - bit-granular random-access reader over a byte slice, the
  parsing counterpart to Writer.

DESCRIPTION
  Reader mirrors the bit-accumulator design of
  codec/h264/h264dec/bits.BitReader (ReadBits/PeekBits over a source of
  bytes) but operates over an in-memory byte slice rather than an
  io.Reader, since IAMF OBU payloads are parsed once `obu_size` bytes have
  already been sliced out of the stream backlog.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrNeedMoreData distinguishes "the signaled length would exceed the
// bytes available" from other InvalidArgument/ResourceExhausted failures,
// so streaming callers know to retry after more input arrives.
var ErrNeedMoreData = errors.New("bits: need more data")

// Reader is a bit-granular forward cursor over a byte slice.
type Reader struct {
	data []byte
	pos  int // absolute bit position from the start of data.
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// BitsRemaining returns the number of unread bits.
func (r *Reader) BitsRemaining() int {
	return len(r.data)*8 - r.pos
}

// BytePosition returns the current byte offset, valid only when
// IsByteAligned.
func (r *Reader) BytePosition() int {
	return r.pos / 8
}

// IsByteAligned reports whether the cursor sits on a byte boundary.
func (r *Reader) IsByteAligned() bool {
	return r.pos%8 == 0
}

// ByteAlign advances the cursor to the next byte boundary, discarding any
// partial-byte bits (which must be zero in a well-formed IAMF stream, but
// this is not enforced here).
func (r *Reader) ByteAlign() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

func (r *Reader) peekBitsAt(pos, bitCount int) (uint64, error) {
	if bitCount < 0 || bitCount > 64 {
		return 0, errors.Wrapf(ErrInvalidArgument, "bit count %d out of range", bitCount)
	}
	if pos+bitCount > len(r.data)*8 {
		return 0, errors.Wrapf(ErrNeedMoreData, "need %d bits at position %d but only %d remain", bitCount, pos, len(r.data)*8-pos)
	}
	var v uint64
	for i := 0; i < bitCount; i++ {
		bitPos := pos + i
		byteIdx := bitPos / 8
		bitIdx := uint(7 - bitPos%8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// ReadUnsignedLiteral reads bitCount bits MSB-first into the
// least-significant part of the result.
func (r *Reader) ReadUnsignedLiteral(bitCount int) (uint64, error) {
	v, err := r.peekBitsAt(r.pos, bitCount)
	if err != nil {
		return 0, err
	}
	r.pos += bitCount
	return v, nil
}

// PeekUnsignedLiteral samples bitCount bits without advancing the cursor.
func (r *Reader) PeekUnsignedLiteral(bitCount int) (uint64, error) {
	return r.peekBitsAt(r.pos, bitCount)
}

// ReadSignedLiteral reads bitCount bits as a two's-complement signed
// integer.
func (r *Reader) ReadSignedLiteral(bitCount int) (int64, error) {
	u, err := r.ReadUnsignedLiteral(bitCount)
	if err != nil {
		return 0, err
	}
	return signExtend(u, bitCount), nil
}

func signExtend(u uint64, bitCount int) int64 {
	signBit := uint64(1) << uint(bitCount-1)
	if u&signBit != 0 {
		return int64(u) - int64(signBit)<<1
	}
	return int64(u)
}

// ReadSigned16 reads a big-endian signed 16-bit integer.
func (r *Reader) ReadSigned16() (int16, error) {
	v, err := r.ReadSignedLiteral(16)
	return int16(v), err
}

// ReadSigned32 reads a big-endian signed 32-bit integer.
func (r *Reader) ReadSigned32() (int32, error) {
	v, err := r.ReadSignedLiteral(32)
	return int32(v), err
}

// ReadUleb128 decodes a ULEB128 value at the current (byte-aligned)
// position, returning the value and the number of bytes consumed.
func (r *Reader) ReadUleb128() (value uint64, bytesRead int, err error) {
	if !r.IsByteAligned() {
		return 0, 0, errors.Wrap(ErrInvalidArgument, "reader must be byte aligned to read a uleb128")
	}
	start := r.pos / 8
	value, bytesRead, err = DecodeUleb128(r.data[start:])
	if err != nil {
		return 0, 0, err
	}
	r.pos += bytesRead * 8
	return value, bytesRead, nil
}

// PeekULeb128 decodes a ULEB128 value without advancing the cursor.
func (r *Reader) PeekULeb128() (value uint64, bytesRead int, err error) {
	if !r.IsByteAligned() {
		return 0, 0, errors.Wrap(ErrInvalidArgument, "reader must be byte aligned to peek a uleb128")
	}
	start := r.pos / 8
	return DecodeUleb128(r.data[start:])
}

// ReadUint8Span reads n raw bytes. The reader must be byte aligned.
func (r *Reader) ReadUint8Span(n int) ([]byte, error) {
	if !r.IsByteAligned() {
		return nil, errors.Wrap(ErrInvalidArgument, "reader must be byte aligned to read raw bytes")
	}
	start := r.pos / 8
	if start+n > len(r.data) {
		return nil, errors.Wrapf(ErrNeedMoreData, "need %d bytes at offset %d but only %d remain", n, start, len(r.data)-start)
	}
	out := make([]byte, n)
	copy(out, r.data[start:start+n])
	r.pos += n * 8
	return out, nil
}

// ReadString reads bytes until (and including) a NUL terminator, returning
// the string without the terminator. Fails if the terminator is not found
// before the buffer is exhausted, or if the bytes read are not valid UTF-8.
func (r *Reader) ReadString() (string, error) {
	if !r.IsByteAligned() {
		return "", errors.Wrap(ErrInvalidArgument, "reader must be byte aligned to read a string")
	}
	start := r.pos / 8
	idx := -1
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", errors.Wrap(ErrNeedMoreData, "string is missing its NUL terminator")
	}
	s := string(r.data[start:idx])
	if !utf8.ValidString(s) {
		return "", errors.Wrap(ErrInvalidArgument, "string is not valid UTF-8")
	}
	r.pos = (idx + 1) * 8
	return s, nil
}

// Remaining returns a copy of all unread bytes. The reader must be byte
// aligned.
func (r *Reader) Remaining() ([]byte, error) {
	if !r.IsByteAligned() {
		return nil, errors.Wrap(ErrInvalidArgument, "reader must be byte aligned to read the remainder")
	}
	start := r.pos / 8
	out := make([]byte, len(r.data)-start)
	copy(out, r.data[start:])
	return out, nil
}
