/*
NAME
  temporal_delimiter.go - the Temporal Delimiter OBU (§4.10): an
  empty-payload OBU that marks the boundary between temporal units.

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
	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

// TemporalDelimiter carries no payload; its presence alone marks the
// boundary between temporal units.
type TemporalDelimiter struct {
	header ObuHeader
}

// Write serializes t, including its OBU header, to w.
func (t TemporalDelimiter) Write(w *bits.Writer) error {
	hdr := t.header
	hdr.ObuType = ObuTemporalDelimiter
	return hdr.ValidateAndWrite(0, w)
}

// ReadTemporalDelimiter parses a Temporal Delimiter OBU, including its
// header, from r.
func ReadTemporalDelimiter(r *bits.Reader) (TemporalDelimiter, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return TemporalDelimiter{}, err
	}
	if hdr.ObuType != ObuTemporalDelimiter {
		return TemporalDelimiter{}, errors.Errorf("iamf: expected Temporal Delimiter obu_type, got %s", hdr.ObuType)
	}
	if payloadSize != 0 {
		return TemporalDelimiter{}, errors.Wrapf(ErrInvalidArgument, "temporal delimiter payload must be empty, got %d bytes", payloadSize)
	}
	return TemporalDelimiter{header: hdr}, nil
}
