/*
NAME
  util.go - integer casts with range checks, Q7.8/Q0.8 fixed-point
  conversions, normalized-float<->int32 sample conversions, and
  uniqueness/size validators shared by the typed OBUs.

DESCRIPTION
  Grounded on codec/pcm/pcm.go's small validated-conversion style (a
  handful of free functions, each returning a wrapped error rather than
  panicking).

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package iamf

import (
	"math"

	"github.com/pkg/errors"
)

// Uint32ToUint8 typecasts input, failing if it cannot be represented in a
// uint8.
func Uint32ToUint8(input uint32) (uint8, error) {
	if input > math.MaxUint8 {
		return 0, errors.Wrapf(ErrInvalidArgument, "%d does not fit in a uint8", input)
	}
	return uint8(input), nil
}

// Uint32ToUint16 typecasts input, failing if it cannot be represented in a
// uint16.
func Uint32ToUint16(input uint32) (uint16, error) {
	if input > math.MaxUint16 {
		return 0, errors.Wrapf(ErrInvalidArgument, "%d does not fit in a uint16", input)
	}
	return uint16(input), nil
}

// Int32ToInt16 typecasts input, failing if it cannot be represented in an
// int16.
func Int32ToInt16(input int32) (int16, error) {
	if input < math.MinInt16 || input > math.MaxInt16 {
		return 0, errors.Wrapf(ErrInvalidArgument, "%d does not fit in an int16", input)
	}
	return int16(input), nil
}

// FloatToQ78 converts a float value to Q7.8 fixed-point, rounding to the
// nearest representable value with halves rounded up (floor(x + 0.5)). Fails if the value overflows an int16.
func FloatToQ78(value float64) (int16, error) {
	scaled := math.Floor(value*256 + 0.5)
	if scaled < math.MinInt16 || scaled > math.MaxInt16 {
		return 0, errors.Wrapf(ErrUnknown, "%f is not representable in Q7.8", value)
	}
	return int16(scaled), nil
}

// Q78ToFloat converts a Q7.8 fixed-point value to float.
func Q78ToFloat(value int16) float64 {
	return float64(value) / 256.0
}

// FloatToQ08 converts a float value to Q0.8 fixed-point, rounding to the
// nearest representable value with halves rounded up (floor(x + 0.5)). Fails if the value overflows a uint8.
func FloatToQ08(value float64) (uint8, error) {
	scaled := math.Floor(value*256 + 0.5)
	if scaled < 0 || scaled > math.MaxUint8 {
		return 0, errors.Wrapf(ErrUnknown, "%f is not representable in Q0.8", value)
	}
	return uint8(scaled), nil
}

// Q08ToFloat converts a Q0.8 fixed-point value to float.
func Q08ToFloat(value uint8) float64 {
	return float64(value) / 256.0
}

// Int32ToNormalizedFloat normalizes value from
// [math.MinInt32, math.MaxInt32] to [-1, 1], with MinInt32 mapping to
// exactly -1.0 and MaxInt32 mapping to nearly +1.0 (the function clamps so
// the mapping stays symmetric about zero).
func Int32ToNormalizedFloat(value int32) float64 {
	const divisor = -float64(math.MinInt32)
	f := float64(value) / divisor
	if f > 1.0 {
		f = 1.0
	}
	return f
}

// NormalizedFloatToInt32 converts a normalized float in [-1, 1] to an
// int32, clamping the input to that range first and the output to the
// full int32 range. Fails on NaN or infinite input.
func NormalizedFloatToInt32(value float64) (int32, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.Wrap(ErrInvalidArgument, "value must be finite")
	}
	clamped := value
	if clamped < -1.0 {
		clamped = -1.0
	}
	if clamped > 1.0 {
		clamped = 1.0
	}
	scaled := clamped * -float64(math.MinInt32)
	if scaled < math.MinInt32 {
		scaled = math.MinInt32
	}
	if scaled > math.MaxInt32 {
		scaled = math.MaxInt32
	}
	return int32(scaled), nil
}

// ValidateUniqueUint32 fails if values contains a duplicate.
func ValidateUniqueUint32(values []uint32, context string) error {
	seen := make(map[uint32]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return errors.Wrapf(ErrInvalidArgument, "%s must be unique, found duplicate: %d", context, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// ValidateContainerSizeEqual fails unless gotLen == want.
func ValidateContainerSizeEqual(field string, gotLen int, want uint64) error {
	if uint64(gotLen) != want {
		return errors.Wrapf(ErrInvalidArgument, "%s has length %d, expected %d", field, gotLen, want)
	}
	return nil
}

// AddUint32CheckOverflow sums x1 and x2, failing if the sum overflows a
// uint32.
func AddUint32CheckOverflow(x1, x2 uint32) (uint32, error) {
	sum := uint64(x1) + uint64(x2)
	if sum > math.MaxUint32 {
		return 0, errors.Wrapf(ErrInvalidArgument, "%d + %d overflows a uint32", x1, x2)
	}
	return uint32(sum), nil
}

// IsPerfectSquare reports whether n is a perfect square, i.e. n == k*k for
// some non-negative integer k.
func IsPerfectSquare(n int) bool {
	if n < 0 {
		return false
	}
	root := int(math.Sqrt(float64(n)))
	for _, k := range []int{root - 1, root, root + 1} {
		if k >= 0 && k*k == n {
			return true
		}
	}
	return false
}

// RoundHalfUp implements the IAMF rounding convention round(x) = floor(x +
// 0.5). The animatedmixgain package does its own rounding and does not
// call this function.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
