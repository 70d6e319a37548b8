/*
NAME
  audio_frame.go - the Audio Frame OBU (§4.9): the explicit form carrying
  an inline substream id, and the 18 implicit-id variants that derive the
  substream id from obu_type.

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

// AudioFrame is the Audio Frame OBU (§4.9). SubstreamID is always
// populated on a successful read or a well-formed value; UseImplicitID
// selects whether Write emits the compact implicit-id form
// (obu_type = kAudioFrameId0 + SubstreamID) or the explicit form
// (obu_type = ObuAudioFrame, substream id written inline).
type AudioFrame struct {
	SubstreamID    uint64
	UseImplicitID  bool
	Payload        []byte

	header ObuHeader
}

// maxImplicitSubstreamID is the highest substream id representable by an
// implicit-id audio frame variant (ObuAudioFrameID0..ObuAudioFrameID17).
const maxImplicitSubstreamID = uint64(ObuAudioFrameID17 - ObuAudioFrameID0)

// Write serializes f, including its OBU header, to w.
func (f AudioFrame) Write(w *bits.Writer) error {
	if f.UseImplicitID && f.SubstreamID > maxImplicitSubstreamID {
		return errors.Wrapf(ErrInvalidArgument, "substream id %d has no implicit-id obu_type (max %d)", f.SubstreamID, maxImplicitSubstreamID)
	}

	payload := bits.NewWriter(w.PolicyForScratch())
	if !f.UseImplicitID {
		if err := payload.WriteUleb128(f.SubstreamID); err != nil {
			return err
		}
	}
	if err := payload.WriteUint8Span(f.Payload); err != nil {
		return err
	}

	hdr := f.header
	if f.UseImplicitID {
		hdr.ObuType = ObuAudioFrameID0 + ObuType(f.SubstreamID)
	} else {
		hdr.ObuType = ObuAudioFrame
	}
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadAudioFrame parses an Audio Frame OBU, including its header, from r.
// The explicit form is distinguished from the 18 implicit forms by
// obu_type alone.
func ReadAudioFrame(r *bits.Reader) (AudioFrame, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return AudioFrame{}, err
	}

	f := AudioFrame{header: hdr}
	if substreamID, ok := hdr.ObuType.IsAudioFrameImplicit(); ok {
		f.UseImplicitID = true
		f.SubstreamID = uint64(substreamID)
		f.Payload, err = r.ReadUint8Span(int(payloadSize))
		if err != nil {
			return AudioFrame{}, err
		}
		return f, nil
	}
	if hdr.ObuType != ObuAudioFrame {
		return AudioFrame{}, errors.Errorf("iamf: expected AudioFrame obu_type, got %s", hdr.ObuType)
	}

	startBit := r.BitsRemaining()
	f.SubstreamID, _, err = r.ReadUleb128()
	if err != nil {
		return AudioFrame{}, err
	}
	idBytes := (startBit - r.BitsRemaining()) / 8
	f.Payload, err = r.ReadUint8Span(int(payloadSize) - idBytes)
	if err != nil {
		return AudioFrame{}, err
	}
	return f, nil
}
