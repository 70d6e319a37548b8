/*
NAME
  arbitrary.go - the Arbitrary OBU (§4.12): an opaque-payload OBU carrying
  an insertion hook so the sequencer can place it relative to other OBUs.

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

// InsertionHook selects where the sequencer places an Arbitrary OBU
// relative to the descriptor and temporal-unit OBUs it is not part of.
type InsertionHook uint8

// Insertion hooks per §4.14. The three *WithTick hooks require
// HasInsertionTick.
const (
	InsertBeforeDescriptors InsertionHook = iota
	InsertAfterDescriptors
	InsertAfterIASequenceHeader
	InsertAfterCodecConfigs
	InsertAfterAudioElements
	InsertAfterMixPresentations
	InsertBeforeParameterBlocksWithTick
	InsertAfterParameterBlocksWithTick
	InsertAfterAudioFramesWithTick
)

// requiresInsertionTick reports whether h is one of the tick-relative
// hooks, which require HasInsertionTick to be set.
func requiresInsertionTick(h InsertionHook) bool {
	switch h {
	case InsertBeforeParameterBlocksWithTick, InsertAfterParameterBlocksWithTick, InsertAfterAudioFramesWithTick:
		return true
	default:
		return false
	}
}

// ErrInvalidBitstream is returned by Write when the Arbitrary OBU is
// flagged InvalidateBitstream, so fuzz/test corpora cannot be emitted by
// an ordinary writing pipeline accidentally.
var ErrInvalidBitstream = errors.New("iamf: arbitrary obu is flagged to invalidate the bitstream")

// Arbitrary carries an opaque payload plus sequencer placement metadata.
type Arbitrary struct {
	Payload       []byte
	InsertionHook InsertionHook
	// InsertionTick is only meaningful for the three tick-relative hooks.
	InsertionTick        uint64
	HasInsertionTick      bool
	// InvalidateBitstream marks this OBU as intentionally malformed, for
	// fuzz/test corpora; Write refuses to emit it unless allowInvalid is set.
	InvalidateBitstream bool

	// ObuType overrides the wire obu_type carried in the reserved range;
	// the zero value is treated as DefaultArbitraryObuType.
	ObuType ObuType
	header  ObuHeader
}

func (a Arbitrary) obuType() ObuType {
	if a.ObuType == 0 {
		return DefaultArbitraryObuType
	}
	return a.ObuType
}

// Write serializes a, including its OBU header, to w. It fails with
// ErrInvalidBitstream if a.InvalidateBitstream is set and allowInvalid is
// false, so that ordinary writing pipelines never emit invalid streams by
// accident.
func (a Arbitrary) Write(w *bits.Writer, allowInvalid bool) error {
	if a.InvalidateBitstream && !allowInvalid {
		return ErrInvalidBitstream
	}
	if requiresInsertionTick(a.InsertionHook) && !a.HasInsertionTick {
		return errors.Wrapf(ErrInvalidArgument, "insertion hook %d requires an insertion tick", a.InsertionHook)
	}
	hdr := a.header
	hdr.ObuType = a.obuType()
	if err := hdr.ValidateAndWrite(len(a.Payload), w); err != nil {
		return err
	}
	return w.WriteUint8Span(a.Payload)
}

// ReadArbitrary parses an Arbitrary OBU, including its header, from r. The
// insertion hook and tick are not carried on the wire (they are sequencer
// metadata assigned at construction time); callers that need them must
// track them out of band.
func ReadArbitrary(r *bits.Reader) (Arbitrary, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return Arbitrary{}, err
	}
	payload, err := r.ReadUint8Span(int(payloadSize))
	if err != nil {
		return Arbitrary{}, err
	}
	return Arbitrary{Payload: payload, ObuType: hdr.ObuType, header: hdr}, nil
}
