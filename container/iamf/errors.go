/*
NAME
  errors.go - typed error kinds shared by every IAMF OBU encoder/decoder.

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

import "github.com/pkg/errors"

// Sentinel error kinds. Use errors.Is to test the kind of a returned
// error; the wrapped message carries the specifics.
var (
	// ErrInvalidArgument signals a malformed field value, a constraint
	// violation, a duplicate in a field required to be unique, or a
	// mismatch between a declared size and actual content.
	ErrInvalidArgument = errors.New("iamf: invalid argument")

	// ErrResourceExhausted names the resource-exhausted error kind. The
	// bits package reports writer capacity exceeded with its own
	// bits.ErrResourceExhausted, a ULEB128 value too large for a fixed
	// size with bits.ErrInvalidArgument, and a short read with
	// bits.ErrNeedMoreData; errors.Is does not match those against this
	// sentinel.
	ErrResourceExhausted = errors.New("iamf: resource exhausted")

	// ErrNeedMoreData is returned by CreateFromDescriptors when its data
	// ends partway through an OBU. It is a separate sentinel: it does not
	// wrap ErrResourceExhausted, and it is distinct from
	// bits.ErrNeedMoreData, which the bits reader returns on a short read
	// and which StreamDecoder.Decode treats as a signal to wait for more
	// input.
	ErrNeedMoreData = errors.New("iamf: need more data")

	// ErrFailedPrecondition signals API misuse. Querying a subblock
	// duration that has not been initialized is reported as
	// ErrInvalidArgument, not as this kind.
	ErrFailedPrecondition = errors.New("iamf: failed precondition")

	// ErrUnimplemented signals a reserved OBU payload whose parse is
	// intentionally skipped.
	ErrUnimplemented = errors.New("iamf: unimplemented")

	// ErrUnknown signals an internal invariant violation, such as a bug
	// in size back-patching or an unexpected bit-alignment failure.
	ErrUnknown = errors.New("iamf: unknown")
)
