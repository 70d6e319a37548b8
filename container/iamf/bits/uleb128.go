/*
NAME
  uleb128.go - ULEB128 variable-length integer encoding used throughout the
  IAMF bitstream (obu_size and most other variable-length fields).

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

import "github.com/pkg/errors"

// MaxUleb128Bytes is the largest number of continuation bytes a reader will
// consume before giving up.
const MaxUleb128Bytes = 8

// MaxUleb128Value is the largest value a ULEB128 field may decode to; IAMF
// restricts these fields to fit in a uint32.
const MaxUleb128Value = 0xFFFFFFFF

// Uleb128Policy selects how WriteUleb128 encodes a value.
//
//   - Minimal uses the fewest continuation-bit bytes that can represent the
//     value.
//   - FixedSize(N) always emits exactly N bytes, for 1 <= N <= 8, padding
//     with continuation bits set on every byte but the last.
type Uleb128Policy struct {
	fixedSize int
	fixed     bool // false means Minimal.
}

// Minimal is the policy that encodes every value in the fewest bytes
// possible.
var Minimal = Uleb128Policy{}

// FixedSize returns a policy that always emits exactly n bytes, for
// 1 <= n <= 8.
func FixedSize(n int) Uleb128Policy {
	return Uleb128Policy{fixedSize: n, fixed: true}
}

// IsFixed reports whether the policy is a FixedSize policy, and if so its
// byte count.
func (p Uleb128Policy) IsFixed() (int, bool) {
	return p.fixedSize, p.fixed
}

// EncodeUleb128 encodes value per policy, returning the encoded bytes.
func EncodeUleb128(value uint64, policy Uleb128Policy) ([]byte, error) {
	if value > MaxUleb128Value {
		return nil, errors.Wrapf(ErrInvalidArgument, "value %d exceeds the uleb128 uint32 range", value)
	}

	if n, fixed := policy.IsFixed(); fixed {
		if n < 1 || n > 8 {
			return nil, errors.Wrapf(ErrInvalidArgument, "fixed uleb128 size %d out of range [1, 8]", n)
		}
		minimal := minimalUleb128Len(value)
		if minimal > n {
			return nil, errors.Wrapf(ErrInvalidArgument, "fixed uleb128 size %d too small to hold value %d", n, value)
		}
		out := make([]byte, n)
		v := value
		for i := 0; i < n; i++ {
			b := byte(v & 0x7f)
			v >>= 7
			if i != n-1 {
				b |= 0x80
			}
			out[i] = b
		}
		return out, nil
	}

	var out []byte
	v := value
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out, nil
}

// minimalUleb128Len returns the number of bytes Minimal would use to encode
// value.
func minimalUleb128Len(value uint64) int {
	n := 1
	v := value >> 7
	for v != 0 {
		n++
		v >>= 7
	}
	return n
}

// DecodeUleb128 decodes a ULEB128 value starting at data[0]. It returns the
// decoded value and the number of bytes consumed. It fails if more than
// MaxUleb128Bytes continuation bytes are seen, if data is exhausted before a
// terminating byte, or if the decoded value exceeds MaxUleb128Value.
func DecodeUleb128(data []byte) (value uint64, n int, err error) {
	for i := 0; i < MaxUleb128Bytes; i++ {
		if i >= len(data) {
			return 0, 0, errors.Wrap(ErrNeedMoreData, "uleb128 truncated before a terminating byte")
		}
		b := data[i]
		value |= uint64(b&0x7f) << uint(7*i)
		if b&0x80 == 0 {
			if value > MaxUleb128Value {
				return 0, 0, errors.Wrapf(ErrInvalidArgument, "decoded uleb128 value %d exceeds uint32 range", value)
			}
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.Wrap(ErrInvalidArgument, "uleb128 exceeds 8 continuation bytes")
}
