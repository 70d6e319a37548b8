/*
NAME
  ia_sequence_header.go - the IA Sequence Header OBU: the magic word and
  profile pair that must open every IA sequence.

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

// Profile enumerates an IA sequence's primary or additional profile.
type Profile uint8

// Profiles per the IA Sequence Header.
const (
	ProfileSimple        Profile = 0
	ProfileBase          Profile = 1
	ProfileBaseEnhanced  Profile = 2
	ProfileBaseAdvanced  Profile = 3
	ProfileAdvanced1     Profile = 4
	ProfileAdvanced2     Profile = 5
	ProfileReserved255   Profile = 255
)

// IASequenceHeader is the first descriptor OBU in every IA sequence.
type IASequenceHeader struct {
	PrimaryProfile    Profile
	AdditionalProfile Profile
	header            ObuHeader
	footer            []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping.
func (h IASequenceHeader) Footer() []byte { return h.footer }

// Write serializes h, including its OBU header, to w.
func (h IASequenceHeader) Write(w *bits.Writer) error {
	payload := bits.NewWriter(w.PolicyForScratch())
	if err := payload.WriteUnsignedLiteral(uint64(IACode), 32); err != nil {
		return err
	}
	if err := payload.WriteUnsignedLiteral(uint64(h.PrimaryProfile), 8); err != nil {
		return err
	}
	if err := payload.WriteUnsignedLiteral(uint64(h.AdditionalProfile), 8); err != nil {
		return err
	}
	if err := payload.WriteUint8Span(h.footer); err != nil {
		return err
	}

	hdr := h.header
	hdr.ObuType = ObuIASequenceHeader
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadIASequenceHeader parses an IA Sequence Header OBU, including its
// header, from r.
func ReadIASequenceHeader(r *bits.Reader) (IASequenceHeader, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return IASequenceHeader{}, err
	}
	if hdr.ObuType != ObuIASequenceHeader {
		return IASequenceHeader{}, errors.Errorf("iamf: expected IA Sequence Header obu_type, got %s", hdr.ObuType)
	}
	start := r.BytePosition()
	code, err := r.ReadUnsignedLiteral(32)
	if err != nil {
		return IASequenceHeader{}, err
	}
	if uint32(code) != IACode {
		return IASequenceHeader{}, errors.Wrapf(ErrInvalidArgument, "iamf: ia_code 0x%08x != 0x%08x", code, IACode)
	}
	primary, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return IASequenceHeader{}, err
	}
	additional, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return IASequenceHeader{}, err
	}
	consumed := r.BytePosition() - start
	footer, err := r.ReadUint8Span(int(payloadSize) - consumed)
	if err != nil {
		return IASequenceHeader{}, err
	}
	return IASequenceHeader{
		PrimaryProfile:    Profile(primary),
		AdditionalProfile: Profile(additional),
		header:            hdr,
		footer:            footer,
	}, nil
}
