/*
NAME
  opus.go - the Opus decoder config sub-structure (§4.4.2).

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
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

// Opus is the decoder config for the Opus codec. IAMF constrains Opus to
// stereo output with unity output gain and mapping family 0; the decoder
// always produces 48 kHz output regardless of InputSampleRate.
type Opus struct {
	Version            uint8
	OutputChannelCount  uint8 // must be 2
	PreSkip             uint16
	InputSampleRate     uint32
	OutputGain          int16 // must be 0
	MappingFamily       uint8 // must be 0
}

// Validate checks Opus's IAMF-imposed field constraints.
func (o Opus) Validate() error {
	if o.OutputChannelCount != 2 {
		return errors.Errorf("opus: output_channel_count must be 2, got %d", o.OutputChannelCount)
	}
	if o.OutputGain != 0 {
		return errors.Errorf("opus: output_gain must be 0, got %d", o.OutputGain)
	}
	if o.MappingFamily != 0 {
		return errors.Errorf("opus: mapping_family must be 0, got %d", o.MappingFamily)
	}
	return nil
}

// Write serializes o to w.
func (o Opus) Write(w *bits.Writer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(o.Version), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(o.OutputChannelCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(o.PreSkip), 16); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(o.InputSampleRate), 32); err != nil {
		return err
	}
	if err := w.WriteSigned16(o.OutputGain); err != nil {
		return err
	}
	return w.WriteUnsignedLiteral(uint64(o.MappingFamily), 8)
}

// ReadOpus parses an Opus decoder config from r.
func ReadOpus(r *bits.Reader) (Opus, error) {
	version, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return Opus{}, err
	}
	channels, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return Opus{}, err
	}
	preSkip, err := r.ReadUnsignedLiteral(16)
	if err != nil {
		return Opus{}, err
	}
	inputRate, err := r.ReadUnsignedLiteral(32)
	if err != nil {
		return Opus{}, err
	}
	outputGain, err := r.ReadSigned16()
	if err != nil {
		return Opus{}, err
	}
	mappingFamily, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return Opus{}, err
	}
	o := Opus{
		Version:           uint8(version),
		OutputChannelCount: uint8(channels),
		PreSkip:            uint16(preSkip),
		InputSampleRate:     uint32(inputRate),
		OutputGain:          outputGain,
		MappingFamily:       uint8(mappingFamily),
	}
	if err := o.Validate(); err != nil {
		return Opus{}, err
	}
	return o, nil
}

// RequiredOpusAudioRollDistance computes Opus's mandated audio_roll_distance
// given the codec config's num_samples_per_frame: a negative integer equal
// to -ceil(3840 / num_samples_per_frame).
func RequiredOpusAudioRollDistance(numSamplesPerFrame uint32) (int16, error) {
	if numSamplesPerFrame == 0 {
		return 0, errors.New("opus: num_samples_per_frame must be non-zero to compute audio_roll_distance")
	}
	rollDistance := -int64(math.Ceil(3840.0 / float64(numSamplesPerFrame)))
	if rollDistance < math.MinInt16 {
		return 0, errors.Errorf("opus: computed audio_roll_distance %d does not fit in an int16", rollDistance)
	}
	return int16(rollDistance), nil
}

// RequiredAudioRollDistance satisfies the decoderConfig interface. Opus's
// mandated audio_roll_distance depends on num_samples_per_frame, which
// this type does not carry; callers needing the real value must use
// RequiredOpusAudioRollDistance, which CodecConfig's audio-roll-distance
// dispatch calls directly for FourCCOpus before ever reaching this method.
func (o Opus) RequiredAudioRollDistance() int16 { return 0 }

// OutputSampleRate is always 48 kHz for Opus.
func (o Opus) OutputSampleRate() uint32 { return 48000 }

// BitDepthToMeasureLoudness is always 32 for Opus.
func (o Opus) BitDepthToMeasureLoudness() uint8 { return 32 }
