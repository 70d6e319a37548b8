/*
NAME
  codec_config.go - the Codec Config OBU (§4.5): codec identification,
  frame sizing, audio-roll-distance, and the per-codec decoder config.

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
	"github.com/ausocean/iamf/container/iamf/decoderconfig"
)

// decoderConfig is implemented by every per-codec decoder config type.
type decoderConfig interface {
	Validate() error
	Write(w *bits.Writer) error
	RequiredAudioRollDistance() int16
	OutputSampleRate() uint32
	BitDepthToMeasureLoudness() uint8
}

// CodecConfig is the Codec Config OBU (§4.5).
type CodecConfig struct {
	CodecConfigID      uint64
	CodecID            string // 4-byte ASCII FourCC: ipcm, Opus, fLaC, mp4a
	NumSamplesPerFrame uint64 // non-zero, <= kMaxPracticalFrameSize
	AudioRollDistance  int16

	LPCM  decoderconfig.LPCM
	Opus  decoderconfig.Opus
	Flac  decoderconfig.Flac
	AacLC decoderconfig.AacLC

	header ObuHeader
	footer []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping.
func (c CodecConfig) Footer() []byte { return c.footer }

func (c *CodecConfig) decoder() (decoderConfig, error) {
	switch c.CodecID {
	case FourCCLPCM:
		return c.LPCM, nil
	case FourCCOpus:
		return c.Opus, nil
	case FourCCFLAC:
		return c.Flac, nil
	case FourCCAACLC:
		return c.AacLC, nil
	default:
		return nil, errors.Errorf("iamf: unknown codec_id %q", c.CodecID)
	}
}

// NewCodecConfig builds a CodecConfig, optionally overriding
// AudioRollDistance with the codec-mandated value when
// overrideAudioRollDistance is true. For Opus, the mandated value depends
// on numSamplesPerFrame and so is computed here rather than read from the
// decoder config.
func NewCodecConfig(codecConfigID uint64, codecID string, numSamplesPerFrame uint64, audioRollDistance int16, overrideAudioRollDistance bool) (CodecConfig, error) {
	c := CodecConfig{
		CodecConfigID:      codecConfigID,
		CodecID:            codecID,
		NumSamplesPerFrame: numSamplesPerFrame,
		AudioRollDistance:  audioRollDistance,
	}
	if !overrideAudioRollDistance {
		return c, nil
	}
	mandated, err := c.mandatedAudioRollDistance()
	if err != nil {
		return CodecConfig{}, err
	}
	c.AudioRollDistance = mandated
	return c, nil
}

func (c *CodecConfig) mandatedAudioRollDistance() (int16, error) {
	switch c.CodecID {
	case FourCCOpus:
		return decoderconfig.RequiredOpusAudioRollDistance(uint32(c.NumSamplesPerFrame))
	default:
		d, err := c.decoder()
		if err != nil {
			return 0, err
		}
		return d.RequiredAudioRollDistance(), nil
	}
}

// SetCodecDelay updates the Opus decoder config's pre_skip field; it is a
// no-op for every other codec.
func (c *CodecConfig) SetCodecDelay(preSkip uint16) {
	if c.CodecID == FourCCOpus {
		c.Opus.PreSkip = preSkip
	}
}

// IsLossless reports whether the configured codec is lossless (LPCM or
// FLAC).
func (c CodecConfig) IsLossless() bool {
	return c.CodecID == FourCCLPCM || c.CodecID == FourCCFLAC
}

// GetOutputSampleRate returns the decoder's output sample rate.
func (c *CodecConfig) GetOutputSampleRate() (uint32, error) {
	d, err := c.decoder()
	if err != nil {
		return 0, err
	}
	return d.OutputSampleRate(), nil
}

// GetInputSampleRate returns the declared input sample rate (only LPCM,
// Opus and FLAC carry an explicit input rate; AAC-LC's is derived from its
// AudioSpecificConfig).
func (c *CodecConfig) GetInputSampleRate() (uint32, error) {
	switch c.CodecID {
	case FourCCLPCM:
		return c.LPCM.SampleRate, nil
	case FourCCOpus:
		return c.Opus.InputSampleRate, nil
	case FourCCFLAC:
		return c.Flac.OutputSampleRate(), nil
	case FourCCAACLC:
		return c.AacLC.OutputSampleRate(), nil
	default:
		return 0, errors.Errorf("iamf: unknown codec_id %q", c.CodecID)
	}
}

// GetBitDepthToMeasureLoudness returns the bit depth used for loudness
// measurement.
func (c *CodecConfig) GetBitDepthToMeasureLoudness() (uint8, error) {
	d, err := c.decoder()
	if err != nil {
		return 0, err
	}
	return d.BitDepthToMeasureLoudness(), nil
}

// Validate checks field constraints and the nested decoder config.
func (c *CodecConfig) Validate() error {
	if len(c.CodecID) != 4 {
		return errors.Wrapf(ErrInvalidArgument, "codec_id must be 4 bytes, got %q", c.CodecID)
	}
	if c.NumSamplesPerFrame == 0 {
		return errors.Wrap(ErrInvalidArgument, "num_samples_per_frame must be non-zero")
	}
	if c.NumSamplesPerFrame > kMaxPracticalFrameSize {
		return errors.Wrapf(ErrInvalidArgument, "num_samples_per_frame %d exceeds the practical limit %d", c.NumSamplesPerFrame, kMaxPracticalFrameSize)
	}
	d, err := c.decoder()
	if err != nil {
		return err
	}
	return d.Validate()
}

// Write serializes c, including its OBU header, to w.
func (c *CodecConfig) Write(w *bits.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	d, err := c.decoder()
	if err != nil {
		return err
	}

	payload := bits.NewWriter(w.PolicyForScratch())
	if err := payload.WriteUleb128(c.CodecConfigID); err != nil {
		return err
	}
	if err := payload.WriteUint8Span([]byte(c.CodecID)); err != nil {
		return err
	}
	if err := payload.WriteUleb128(c.NumSamplesPerFrame); err != nil {
		return err
	}
	if err := payload.WriteSigned16(c.AudioRollDistance); err != nil {
		return err
	}
	if err := d.Write(payload); err != nil {
		return err
	}
	if err := payload.WriteUint8Span(c.footer); err != nil {
		return err
	}

	hdr := c.header
	hdr.ObuType = ObuCodecConfig
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadCodecConfig parses a Codec Config OBU, including its header, from r.
func ReadCodecConfig(r *bits.Reader) (CodecConfig, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return CodecConfig{}, err
	}
	if hdr.ObuType != ObuCodecConfig {
		return CodecConfig{}, errors.Errorf("iamf: expected CodecConfig obu_type, got %s", hdr.ObuType)
	}
	start := r.BytePosition()

	var c CodecConfig
	c.header = hdr
	c.CodecConfigID, _, err = r.ReadUleb128()
	if err != nil {
		return CodecConfig{}, err
	}
	codecIDBytes, err := r.ReadUint8Span(4)
	if err != nil {
		return CodecConfig{}, err
	}
	c.CodecID = string(codecIDBytes)
	c.NumSamplesPerFrame, _, err = r.ReadUleb128()
	if err != nil {
		return CodecConfig{}, err
	}
	c.AudioRollDistance, err = r.ReadSigned16()
	if err != nil {
		return CodecConfig{}, err
	}

	switch c.CodecID {
	case FourCCLPCM:
		c.LPCM, err = decoderconfig.ReadLPCM(r)
	case FourCCOpus:
		c.Opus, err = decoderconfig.ReadOpus(r)
	case FourCCFLAC:
		c.Flac, err = decoderconfig.ReadFlac(r)
	case FourCCAACLC:
		c.AacLC, err = decoderconfig.ReadAacLC(r)
	default:
		return CodecConfig{}, errors.Errorf("iamf: unknown codec_id %q", c.CodecID)
	}
	if err != nil {
		return CodecConfig{}, err
	}
	consumed := r.BytePosition() - start
	c.footer, err = r.ReadUint8Span(int(payloadSize) - consumed)
	if err != nil {
		return CodecConfig{}, err
	}
	if err := c.Validate(); err != nil {
		return CodecConfig{}, err
	}
	return c, nil
}
