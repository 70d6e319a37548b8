/*
NAME
  lpcm.go - the LPCM decoder config sub-structure (§4.4.1) plus the raw
  sample packing/unpacking helpers IAMF Audio Frame payloads use for the
  LPCM codec.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoderconfig provides the per-codec decoder-config sum type
// (LPCM, Opus, FLAC, AAC-LC) owned by a Codec Config OBU.
package decoderconfig

import (
	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

// Sample rates LPCM may declare.
var validLPCMSampleRates = map[uint32]bool{
	16000: true,
	32000: true,
	44100: true,
	48000: true,
	96000: true,
}

// Sample sizes LPCM may declare.
var validLPCMSampleSizes = map[uint8]bool{16: true, 24: true, 32: true}

// LPCM is the decoder config for uncompressed linear PCM.
type LPCM struct {
	// LittleEndian is bit 0 of sample_format_flags; other bits reserved.
	LittleEndian bool
	SampleSize   uint8  // one of {16, 24, 32}
	SampleRate   uint32 // one of {16000, 32000, 44100, 48000, 96000}
}

// Validate checks LPCM's field constraints.
func (l LPCM) Validate() error {
	if !validLPCMSampleSizes[l.SampleSize] {
		return errors.Errorf("lpcm: sample_size %d must be one of {16, 24, 32}", l.SampleSize)
	}
	if !validLPCMSampleRates[l.SampleRate] {
		return errors.Errorf("lpcm: sample_rate %d is not one of the allowed rates", l.SampleRate)
	}
	return nil
}

// Write serializes l to w.
func (l LPCM) Write(w *bits.Writer) error {
	if err := l.Validate(); err != nil {
		return err
	}
	var flags uint64
	if l.LittleEndian {
		flags = 1
	}
	if err := w.WriteUnsignedLiteral(flags, 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(l.SampleSize), 8); err != nil {
		return err
	}
	return w.WriteUnsignedLiteral(uint64(l.SampleRate), 32)
}

// ReadLPCM parses an LPCM decoder config from r.
func ReadLPCM(r *bits.Reader) (LPCM, error) {
	flags, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return LPCM{}, err
	}
	sampleSize, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return LPCM{}, err
	}
	sampleRate, err := r.ReadUnsignedLiteral(32)
	if err != nil {
		return LPCM{}, err
	}
	l := LPCM{
		LittleEndian: flags&1 != 0,
		SampleSize:   uint8(sampleSize),
		SampleRate:   uint32(sampleRate),
	}
	if err := l.Validate(); err != nil {
		return LPCM{}, err
	}
	return l, nil
}

// RequiredAudioRollDistance is always 0 for LPCM.
func (l LPCM) RequiredAudioRollDistance() int16 { return 0 }

// OutputSampleRate returns the configured sample rate.
func (l LPCM) OutputSampleRate() uint32 { return l.SampleRate }

// BitDepthToMeasureLoudness is the LPCM sample size.
func (l LPCM) BitDepthToMeasureLoudness() uint8 { return l.SampleSize }

// WriteSample writes the upper sample_size bits of sample (a left-justified
// 32-bit sample, per spec.md §9) into buf at byte offset pos, in the
// endianness configured by l. Returns the number of bytes written.
func (l LPCM) WriteSample(buf []byte, pos int, sample uint32) int {
	n := int(l.SampleSize) / 8
	shift := 32 - int(l.SampleSize)
	value := sample >> uint(shift)
	for i := 0; i < n; i++ {
		var shiftAmt uint
		if l.LittleEndian {
			shiftAmt = uint(8 * i)
		} else {
			shiftAmt = uint(8 * (n - 1 - i))
		}
		buf[pos+i] = byte(value >> shiftAmt)
	}
	return n
}

// ReadSample reads one sample_size-bit sample from buf at byte offset pos
// in the endianness configured by l, returning it left-justified into a
// 32-bit value (per spec.md §9) and the number of bytes consumed.
func (l LPCM) ReadSample(buf []byte, pos int) (sample uint32, n int) {
	n = int(l.SampleSize) / 8
	var value uint32
	for i := 0; i < n; i++ {
		var shiftAmt uint
		if l.LittleEndian {
			shiftAmt = uint(8 * i)
		} else {
			shiftAmt = uint(8 * (n - 1 - i))
		}
		value |= uint32(buf[pos+i]) << shiftAmt
	}
	shift := 32 - int(l.SampleSize)
	return value << uint(shift), n
}
