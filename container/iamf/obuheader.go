/*
NAME
  obuheader.go - the common OBU preamble shared by every OBU: obu_type,
  flags, the back-patched obu_size, and the optional trimming/extension
  fields.

DESCRIPTION
  ObuHeader mirrors the way container/mts/mpegts.go models a fixed packet
  preamble with optional trailing fields gated by flags, and
  container/mts/psi/psi.go's pattern of computing a length field from the
  serialized size of what follows it before writing the length itself.

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

	"github.com/ausocean/iamf/container/iamf/bits"
)

// ObuHeader is the common preamble written before every OBU's payload.
type ObuHeader struct {
	ObuType                ObuType
	ObuRedundantCopy       bool
	ObuTrimmingStatusFlag  bool
	ObuExtensionFlag       bool
	NumSamplesToTrimAtEnd   uint64 // present iff ObuTrimmingStatusFlag
	NumSamplesToTrimAtStart uint64 // present iff ObuTrimmingStatusFlag
	ExtensionHeaderSize     uint64 // present iff ObuExtensionFlag
	ExtensionHeaderBytes    []byte // length == ExtensionHeaderSize
}

// isRedundantCopyAllowed reports whether t may set ObuRedundantCopy.
func isRedundantCopyAllowed(t ObuType) bool {
	if _, ok := t.IsAudioFrameImplicit(); ok {
		return false
	}
	switch t {
	case ObuTemporalDelimiter, ObuAudioFrame, ObuParameterBlock:
		return false
	default:
		return true
	}
}

// isTrimmingStatusFlagAllowed reports whether t may set
// ObuTrimmingStatusFlag.
func isTrimmingStatusFlagAllowed(t ObuType) bool {
	if _, ok := t.IsAudioFrameImplicit(); ok {
		return true
	}
	return t == ObuAudioFrame
}

func (h *ObuHeader) validate() error {
	if !h.ObuExtensionFlag && h.ExtensionHeaderSize > 0 {
		return errors.Wrap(ErrInvalidArgument, "obu_extension_flag is unset but extension_header_size is non-zero")
	}
	if uint64(len(h.ExtensionHeaderBytes)) != h.ExtensionHeaderSize {
		return errors.Wrapf(ErrInvalidArgument, "extension_header_bytes length %d does not match extension_header_size %d", len(h.ExtensionHeaderBytes), h.ExtensionHeaderSize)
	}
	if h.ObuRedundantCopy && !isRedundantCopyAllowed(h.ObuType) {
		return errors.Wrapf(ErrInvalidArgument, "obu_redundant_copy is not allowed for obu_type=%s", h.ObuType)
	}
	if h.ObuTrimmingStatusFlag && !isTrimmingStatusFlagAllowed(h.ObuType) {
		return errors.Wrapf(ErrInvalidArgument, "obu_trimming_status_flag is not allowed for obu_type=%s", h.ObuType)
	}
	return nil
}

// writeFieldsAfterObuSize writes the trimming and extension fields (those
// that follow obu_size in the wire layout) to w.
func (h *ObuHeader) writeFieldsAfterObuSize(w *bits.Writer) error {
	if h.ObuTrimmingStatusFlag {
		if err := w.WriteUleb128(h.NumSamplesToTrimAtEnd); err != nil {
			return err
		}
		if err := w.WriteUleb128(h.NumSamplesToTrimAtStart); err != nil {
			return err
		}
	}
	if h.ObuExtensionFlag {
		if uint64(len(h.ExtensionHeaderBytes)) != h.ExtensionHeaderSize {
			return errors.Wrapf(ErrInvalidArgument, "extension_header_bytes length %d does not match extension_header_size %d", len(h.ExtensionHeaderBytes), h.ExtensionHeaderSize)
		}
		if err := w.WriteUleb128(h.ExtensionHeaderSize); err != nil {
			return err
		}
		if err := w.WriteUint8Span(h.ExtensionHeaderBytes); err != nil {
			return err
		}
	}
	return nil
}

// validateObuIsUnderTwoMegabytes checks the second of IAMF's two size
// restrictions given the number of bytes obuSize itself will occupy once
// encoded.
func validateObuIsUnderTwoMegabytes(obuSize uint64, sizeOfObuSize int) error {
	maxObuSize := uint64(kEntireObuSizeMaxTwoMegabytes) - 1 - uint64(sizeOfObuSize)
	if obuSize > maxObuSize {
		return errors.Wrapf(ErrInvalidArgument, "obu_size=%d results in an OBU greater than 2 MiB", obuSize)
	}
	return nil
}

// ValidateAndWrite writes the header for an OBU whose (already serialized)
// payload is payloadSize bytes, computing and back-patching obu_size
// before writing it. The header is serialized to a scratch buffer first so
// the combined length of the trimming/extension fields can be measured;
// this keeps the writer purely forward-moving per spec.md §9.
func (h *ObuHeader) ValidateAndWrite(payloadSize int, w *bits.Writer) error {
	if payloadSize < 0 || uint64(payloadSize) > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidArgument, "payload size %d must fit in a uint32", payloadSize)
	}

	scratch := bits.NewWriter(w.PolicyForScratch())
	if err := h.writeFieldsAfterObuSize(scratch); err != nil {
		return err
	}
	if !scratch.IsByteAligned() {
		return errors.Wrap(ErrUnknown, "fields after obu_size were not byte aligned")
	}
	fieldsAfterObuSize := uint64(scratch.Len())

	obuSize := fieldsAfterObuSize + uint64(payloadSize)
	sizeEnc, err := bits.EncodeUleb128(obuSize, w.PolicyForScratch())
	if err != nil {
		return err
	}
	if err := validateObuIsUnderTwoMegabytes(obuSize, len(sizeEnc)); err != nil {
		return err
	}
	if err := h.validate(); err != nil {
		return err
	}

	if err := w.WriteUnsignedLiteral(uint64(h.ObuType), 5); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(h.ObuRedundantCopy), 1); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(h.ObuTrimmingStatusFlag), 1); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(h.ObuExtensionFlag), 1); err != nil {
		return err
	}
	if err := w.WriteUleb128(obuSize); err != nil {
		return err
	}
	return h.writeFieldsAfterObuSize(w)
}

// ReadAndValidate reads the header from r and returns the size, in bytes,
// of the remaining (typed) payload.
func (h *ObuHeader) ReadAndValidate(r *bits.Reader) (payloadSize int64, err error) {
	obuTypeU, err := r.ReadUnsignedLiteral(5)
	if err != nil {
		return 0, err
	}
	h.ObuType = ObuType(obuTypeU)

	redundant, err := r.ReadUnsignedLiteral(1)
	if err != nil {
		return 0, err
	}
	h.ObuRedundantCopy = redundant != 0

	trimming, err := r.ReadUnsignedLiteral(1)
	if err != nil {
		return 0, err
	}
	h.ObuTrimmingStatusFlag = trimming != 0

	extension, err := r.ReadUnsignedLiteral(1)
	if err != nil {
		return 0, err
	}
	h.ObuExtensionFlag = extension != 0

	obuSize, sizeOfObuSize, err := r.ReadUleb128()
	if err != nil {
		return 0, err
	}
	if err := validateObuIsUnderTwoMegabytes(obuSize, sizeOfObuSize); err != nil {
		return 0, err
	}

	var trimEndSize, trimStartSize int
	if h.ObuTrimmingStatusFlag {
		v, n, err := r.ReadUleb128()
		if err != nil {
			return 0, err
		}
		h.NumSamplesToTrimAtEnd = v
		trimEndSize = n

		v, n, err = r.ReadUleb128()
		if err != nil {
			return 0, err
		}
		h.NumSamplesToTrimAtStart = v
		trimStartSize = n
	}

	var extSizeSize int
	if h.ObuExtensionFlag {
		v, n, err := r.ReadUleb128()
		if err != nil {
			return 0, err
		}
		h.ExtensionHeaderSize = v
		extSizeSize = n
		b, err := r.ReadUint8Span(int(v))
		if err != nil {
			return 0, err
		}
		h.ExtensionHeaderBytes = b
	}

	fieldsAfterObuSize := trimEndSize + trimStartSize + extSizeSize + len(h.ExtensionHeaderBytes)
	payloadSize = int64(obuSize) - int64(fieldsAfterObuSize)
	if payloadSize < 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "obu_size is not valid for the OBU's flags: negative remaining payload size")
	}

	if err := h.validate(); err != nil {
		return 0, err
	}
	return payloadSize, nil
}

// PeekObuTypeAndTotalObuSize returns the OBU's type and its total encoded
// size, header included, without consuming any bytes. It is used by the
// streaming decoder to decide whether a full OBU is available yet.
func PeekObuTypeAndTotalObuSize(r *bits.Reader) (t ObuType, totalSize int, err error) {
	typeU, err := r.PeekUnsignedLiteral(5)
	if err != nil {
		return 0, 0, err
	}
	t = ObuType(typeU)

	// obu_size sits after the 1-byte preamble (type + 3 flag bits).
	if r.BitsRemaining() < 8 {
		return 0, 0, errors.Wrap(bits.ErrNeedMoreData, "not enough bytes to peek obu_size")
	}
	peek := bits.NewReader(mustRemainingAt(r, 1))
	obuSize, n, err := peek.PeekULeb128()
	if err != nil {
		return 0, 0, err
	}
	return t, 1 + n + int(obuSize), nil
}

// mustRemainingAt returns the bytes of r starting byteOffset bytes in,
// assuming r is currently byte aligned at offset 0. Used only by
// PeekObuTypeAndTotalObuSize, which never advances r.
func mustRemainingAt(r *bits.Reader, byteOffset int) []byte {
	full, _ := r.Remaining()
	if byteOffset >= len(full) {
		return nil
	}
	return full[byteOffset:]
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
