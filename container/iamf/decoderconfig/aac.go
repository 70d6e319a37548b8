/*
NAME
  aac.go - the AAC-LC decoder config sub-structure (§4.4.4): an
  ISO-14496-1 DecoderConfigDescriptor wrapping an AudioSpecificConfig.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoderconfig

import (
	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

const (
	decoderConfigDescrTag    = 0x04
	decoderSpecificInfoTag   = 0x05
	objectTypeIndicationAAC  = 0x40
	streamTypeAudio          = 0x05
	audioObjectTypeAACLC     = 2
	escapeSampleFreqIndex    = 0xF
	maxExpandableLengthBytes = 4
)

// aacLCSampleRateTable maps sampling_frequency_index to rate, per the ISO
// 14496-3 table. Index escapeSampleFreqIndex signals an inline 24-bit rate.
var aacLCSampleRateTable = []uint32{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// AacLC is the decoder config for the AAC-LC codec.
type AacLC struct {
	BufferSizeDB     uint32 // 24 bits
	MaxBitrate       uint32
	AverageBitRate   uint32
	SampleFrequencyIndex uint8 // 4 bits; escapeSampleFreqIndex means SamplingFrequency is used
	SamplingFrequency    uint32 // used iff SampleFrequencyIndex == escapeSampleFreqIndex
	ChannelConfiguration uint8  // 4 bits
}

func writeExpandableLength(w *bits.Writer, length uint32) error {
	// 7 bits of value per byte, MSB set on every byte but the last.
	var bytesLen []byte
	v := length
	for {
		b := byte(v & 0x7f)
		v >>= 7
		bytesLen = append([]byte{b}, bytesLen...)
		if v == 0 {
			break
		}
	}
	for i, b := range bytesLen {
		if i != len(bytesLen)-1 {
			b |= 0x80
		}
		if err := w.WriteUnsignedLiteral(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

func readExpandableLength(r *bits.Reader) (uint32, error) {
	var length uint32
	for i := 0; i < maxExpandableLengthBytes; i++ {
		b, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return 0, err
		}
		length = length<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return length, nil
		}
	}
	return 0, errors.Wrap(ErrAACDescriptorTooLong, "expandable length exceeded 4 bytes")
}

// ErrAACDescriptorTooLong signals an ISO-14496-1 expandable length field
// that did not terminate within 4 bytes.
var ErrAACDescriptorTooLong = errors.New("aac: expandable length descriptor too long")

// Validate checks AacLC's field constraints: the fields fixed by IAMF's
// AAC-LC profile (object_type_indication, stream_type, audio_object_type)
// are not user-settable and so are asserted by Write/ReadAacLC directly;
// Validate checks the one field callers do set, sampling_frequency_index,
// against the 4-bit range ISO 14496-3's table (plus the escape value)
// allows.
func (a AacLC) Validate() error {
	if a.SampleFrequencyIndex > escapeSampleFreqIndex {
		return errors.Errorf("aac: sampling_frequency_index %d exceeds the 4-bit range", a.SampleFrequencyIndex)
	}
	return nil
}

func (a AacLC) audioSpecificConfigBytes() ([]byte, error) {
	w := bits.NewWriter(bits.Minimal)
	if err := w.WriteUnsignedLiteral(audioObjectTypeAACLC, 5); err != nil {
		return nil, err
	}
	if err := w.WriteUnsignedLiteral(uint64(a.SampleFrequencyIndex), 4); err != nil {
		return nil, err
	}
	if a.SampleFrequencyIndex == escapeSampleFreqIndex {
		if err := w.WriteUnsignedLiteral(uint64(a.SamplingFrequency), 24); err != nil {
			return nil, err
		}
	}
	if err := w.WriteUnsignedLiteral(uint64(a.ChannelConfiguration), 4); err != nil {
		return nil, err
	}
	// GASpecificConfig: frame_length_flag=0, depends_on_core_coder=0,
	// extension_flag=0.
	if err := w.WriteUnsignedLiteral(0, 3); err != nil {
		return nil, err
	}
	w.ByteAlign()
	return w.Bytes(), nil
}

// Write serializes the DecoderConfigDescriptor (a + its nested
// DecoderSpecificInfo/AudioSpecificConfig) to w.
func (a AacLC) Write(w *bits.Writer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	ascBytes, err := a.audioSpecificConfigBytes()
	if err != nil {
		return err
	}

	inner := bits.NewWriter(bits.Minimal)
	if err := inner.WriteUnsignedLiteral(objectTypeIndicationAAC, 8); err != nil {
		return err
	}
	packed := uint64(streamTypeAudio)<<2 | 0<<1 | 1 // upstream=0, reserved=1
	if err := inner.WriteUnsignedLiteral(packed, 8); err != nil {
		return err
	}
	if err := inner.WriteUnsignedLiteral(uint64(a.BufferSizeDB), 24); err != nil {
		return err
	}
	if err := inner.WriteUnsignedLiteral(uint64(a.MaxBitrate), 32); err != nil {
		return err
	}
	if err := inner.WriteUnsignedLiteral(uint64(a.AverageBitRate), 32); err != nil {
		return err
	}

	// Nested DecoderSpecificInfo descriptor.
	dsiWriter := bits.NewWriter(bits.Minimal)
	if err := dsiWriter.WriteUnsignedLiteral(decoderSpecificInfoTag, 8); err != nil {
		return err
	}
	if err := writeExpandableLength(dsiWriter, uint32(len(ascBytes))); err != nil {
		return err
	}
	if err := dsiWriter.WriteUint8Span(ascBytes); err != nil {
		return err
	}
	if err := inner.WriteUint8Span(dsiWriter.Bytes()); err != nil {
		return err
	}

	if err := w.WriteUnsignedLiteral(decoderConfigDescrTag, 8); err != nil {
		return err
	}
	if err := writeExpandableLength(w, uint32(inner.Len())); err != nil {
		return err
	}
	return w.WriteUint8Span(inner.Bytes())
}

// ReadAacLC parses an AAC-LC decoder config from r.
func ReadAacLC(r *bits.Reader) (AacLC, error) {
	tag, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return AacLC{}, err
	}
	if tag != decoderConfigDescrTag {
		return AacLC{}, errors.Errorf("aac: expected DecoderConfigDescriptor tag 0x%02x, got 0x%02x", decoderConfigDescrTag, tag)
	}
	descLen, err := readExpandableLength(r)
	if err != nil {
		return AacLC{}, err
	}
	descBytes, err := r.ReadUint8Span(int(descLen))
	if err != nil {
		return AacLC{}, err
	}
	inner := bits.NewReader(descBytes)

	oti, err := inner.ReadUnsignedLiteral(8)
	if err != nil {
		return AacLC{}, err
	}
	if oti != objectTypeIndicationAAC {
		return AacLC{}, errors.Errorf("aac: expected object_type_indication 0x%02x, got 0x%02x", objectTypeIndicationAAC, oti)
	}
	if _, err := inner.ReadUnsignedLiteral(8); err != nil { // stream_type/upstream/reserved
		return AacLC{}, err
	}
	var a AacLC
	v, err := inner.ReadUnsignedLiteral(24)
	if err != nil {
		return AacLC{}, err
	}
	a.BufferSizeDB = uint32(v)
	if v, err = inner.ReadUnsignedLiteral(32); err != nil {
		return AacLC{}, err
	}
	a.MaxBitrate = uint32(v)
	if v, err = inner.ReadUnsignedLiteral(32); err != nil {
		return AacLC{}, err
	}
	a.AverageBitRate = uint32(v)

	dsiTag, err := inner.ReadUnsignedLiteral(8)
	if err != nil {
		return AacLC{}, err
	}
	if dsiTag != decoderSpecificInfoTag {
		return AacLC{}, errors.Errorf("aac: expected DecoderSpecificInfo tag 0x%02x, got 0x%02x", decoderSpecificInfoTag, dsiTag)
	}
	dsiLen, err := readExpandableLength(inner)
	if err != nil {
		return AacLC{}, err
	}
	ascBytes, err := inner.ReadUint8Span(int(dsiLen))
	if err != nil {
		return AacLC{}, err
	}
	asc := bits.NewReader(ascBytes)
	objType, err := asc.ReadUnsignedLiteral(5)
	if err != nil {
		return AacLC{}, err
	}
	if objType != audioObjectTypeAACLC {
		return AacLC{}, errors.Errorf("aac: expected audio_object_type %d, got %d", audioObjectTypeAACLC, objType)
	}
	freqIdx, err := asc.ReadUnsignedLiteral(4)
	if err != nil {
		return AacLC{}, err
	}
	a.SampleFrequencyIndex = uint8(freqIdx)
	if a.SampleFrequencyIndex == escapeSampleFreqIndex {
		sf, err := asc.ReadUnsignedLiteral(24)
		if err != nil {
			return AacLC{}, err
		}
		a.SamplingFrequency = uint32(sf)
	}
	chanCfg, err := asc.ReadUnsignedLiteral(4)
	if err != nil {
		return AacLC{}, err
	}
	a.ChannelConfiguration = uint8(chanCfg)
	if _, err := asc.ReadUnsignedLiteral(3); err != nil { // GASpecificConfig
		return AacLC{}, err
	}
	if err := a.Validate(); err != nil {
		return AacLC{}, err
	}
	return a, nil
}

// RequiredAudioRollDistance is always -1 for AAC-LC.
func (a AacLC) RequiredAudioRollDistance() int16 { return -1 }

// OutputSampleRate returns the configured (or table-derived) sample rate.
func (a AacLC) OutputSampleRate() uint32 {
	if a.SampleFrequencyIndex == escapeSampleFreqIndex {
		return a.SamplingFrequency
	}
	if int(a.SampleFrequencyIndex) < len(aacLCSampleRateTable) {
		return aacLCSampleRateTable[a.SampleFrequencyIndex]
	}
	return 0
}

// BitDepthToMeasureLoudness is always 16 for AAC-LC.
func (a AacLC) BitDepthToMeasureLoudness() uint8 { return 16 }
