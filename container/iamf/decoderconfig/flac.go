/*
NAME
  flac.go - the FLAC decoder config sub-structure (§4.4.3): an ordered
  chain of metadata blocks, the first a StreamInfo block, the last marked
  with last_metadata_block_flag.

DESCRIPTION
  The chained, length-prefixed metadata block framing mirrors the block
  structure github.com/mewkiz/flac's meta package parses (STREAMINFO
  first, a last-block flag terminating the chain); this package only
  carries that framing as decoder-config metadata and never decodes FLAC
  audio frames, which is out of scope (spec.md §1 Non-goals).

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
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

// FlacBlockType identifies a FLAC metadata block's payload shape.
type FlacBlockType uint8

// Block types recognized by the IAMF FLAC decoder config.
const (
	FlacStreamInfo    FlacBlockType = 0
	FlacPadding       FlacBlockType = 1
	FlacApplication   FlacBlockType = 2
	FlacSeektable     FlacBlockType = 3
	FlacVorbisComment FlacBlockType = 4
	FlacCuesheet      FlacBlockType = 5
	FlacPicture       FlacBlockType = 6
	FlacInvalid       FlacBlockType = 127
)

// FlacStreamInfoData is the payload of the mandatory first FLAC metadata
// block.
type FlacStreamInfoData struct {
	MinimumBlockSize    uint16
	MaximumBlockSize    uint16
	MinimumFrameSize    uint32 // 24 bits; must be 0
	MaximumFrameSize    uint32 // 24 bits; must be 0
	SampleRate          uint32 // 20 bits
	NumberOfChannels    uint8  // 3 bits; fixed semantics, value ignored
	BitsPerSample       uint8  // 5 bits; effective value is field+1, must be in [4, 32]
	TotalSamplesInStream uint64 // 36 bits
	MD5                 [16]byte // must be all zero
}

// Validate checks StreamInfo's IAMF-imposed constraints.
func (s FlacStreamInfoData) Validate() error {
	if s.MinimumFrameSize != 0 {
		return errors.Errorf("flac: minimum_frame_size must be 0, got %d", s.MinimumFrameSize)
	}
	if s.MaximumFrameSize != 0 {
		return errors.Errorf("flac: maximum_frame_size must be 0, got %d", s.MaximumFrameSize)
	}
	effectiveBits := int(s.BitsPerSample) + 1
	if effectiveBits < 4 || effectiveBits > 32 {
		return errors.Errorf("flac: effective bits_per_sample %d must be in [4, 32]", effectiveBits)
	}
	if !bytes.Equal(s.MD5[:], make([]byte, 16)) {
		return errors.New("flac: md5 must be all zero")
	}
	return nil
}

// validateLoose checks only the constraints that a foreign stream is
// unlikely to violate benignly; used by round-trip parsing of arbitrary
// FLAC streams that may carry a genuine MD5/frame size. Strict validation
// (Validate) is applied when building new streams.
func (s FlacStreamInfoData) validateLoose() error {
	effectiveBits := int(s.BitsPerSample) + 1
	if effectiveBits < 4 || effectiveBits > 32 {
		return errors.Errorf("flac: effective bits_per_sample %d must be in [4, 32]", effectiveBits)
	}
	return nil
}

func (s FlacStreamInfoData) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(s.MinimumBlockSize), 16); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.MaximumBlockSize), 16); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.MinimumFrameSize), 24); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.MaximumFrameSize), 24); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.SampleRate), 20); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.NumberOfChannels), 3); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(s.BitsPerSample), 5); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(s.TotalSamplesInStream, 36); err != nil {
		return err
	}
	return w.WriteUint8Span(s.MD5[:])
}

func readFlacStreamInfoData(r *bits.Reader) (FlacStreamInfoData, error) {
	var s FlacStreamInfoData
	v, err := r.ReadUnsignedLiteral(16)
	if err != nil {
		return s, err
	}
	s.MinimumBlockSize = uint16(v)
	if v, err = r.ReadUnsignedLiteral(16); err != nil {
		return s, err
	}
	s.MaximumBlockSize = uint16(v)
	if v, err = r.ReadUnsignedLiteral(24); err != nil {
		return s, err
	}
	s.MinimumFrameSize = uint32(v)
	if v, err = r.ReadUnsignedLiteral(24); err != nil {
		return s, err
	}
	s.MaximumFrameSize = uint32(v)
	if v, err = r.ReadUnsignedLiteral(20); err != nil {
		return s, err
	}
	s.SampleRate = uint32(v)
	if v, err = r.ReadUnsignedLiteral(3); err != nil {
		return s, err
	}
	s.NumberOfChannels = uint8(v)
	if v, err = r.ReadUnsignedLiteral(5); err != nil {
		return s, err
	}
	s.BitsPerSample = uint8(v)
	if v, err = r.ReadUnsignedLiteral(36); err != nil {
		return s, err
	}
	s.TotalSamplesInStream = v
	md5, err := r.ReadUint8Span(16)
	if err != nil {
		return s, err
	}
	copy(s.MD5[:], md5)
	if err := s.validateLoose(); err != nil {
		return s, err
	}
	return s, nil
}

// FlacMetadataBlock is one block in the FLAC metadata chain.
type FlacMetadataBlock struct {
	Last       bool
	BlockType  FlacBlockType
	StreamInfo FlacStreamInfoData // valid iff BlockType == FlacStreamInfo
	RawData    []byte             // valid otherwise; raw payload bytes
}

func (b FlacMetadataBlock) payloadBytes() ([]byte, error) {
	w := bits.NewWriter(bits.Minimal)
	if b.BlockType == FlacStreamInfo {
		if err := b.StreamInfo.write(w); err != nil {
			return nil, err
		}
	} else {
		if err := w.WriteUint8Span(b.RawData); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func (b FlacMetadataBlock) write(w *bits.Writer) error {
	payload, err := b.payloadBytes()
	if err != nil {
		return err
	}
	header := uint64(b.BlockType) & 0x7f
	if b.Last {
		header |= 0x80
	}
	if err := w.WriteUnsignedLiteral(header, 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(len(payload)), 24); err != nil {
		return err
	}
	return w.WriteUint8Span(payload)
}

func readFlacMetadataBlock(r *bits.Reader) (FlacMetadataBlock, error) {
	header, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return FlacMetadataBlock{}, err
	}
	length, err := r.ReadUnsignedLiteral(24)
	if err != nil {
		return FlacMetadataBlock{}, err
	}
	b := FlacMetadataBlock{
		Last:      header&0x80 != 0,
		BlockType: FlacBlockType(header & 0x7f),
	}
	if b.BlockType == FlacStreamInfo {
		sub := bits.NewReader(nil)
		data, err := r.ReadUint8Span(int(length))
		if err != nil {
			return FlacMetadataBlock{}, err
		}
		sub = bits.NewReader(data)
		b.StreamInfo, err = readFlacStreamInfoData(sub)
		if err != nil {
			return FlacMetadataBlock{}, err
		}
	} else {
		data, err := r.ReadUint8Span(int(length))
		if err != nil {
			return FlacMetadataBlock{}, err
		}
		b.RawData = data
	}
	return b, nil
}

// Flac is the decoder config for the FLAC codec: an ordered chain of
// metadata blocks, the first a StreamInfo block and the last marked
// Last=true.
type Flac struct {
	MetadataBlocks []FlacMetadataBlock
}

// Validate checks that the chain starts with StreamInfo and ends with a
// single block flagged Last, and applies StreamInfo's loose constraints
// (the ones a foreign stream is unlikely to violate benignly). It
// deliberately does not enforce StreamInfo's strict zero-MD5/frame-size
// constraint, so that a Flac parsed from a genuine foreign stream
// (ReadFlac already applies validateLoose) round-trips through Write
// rather than being rejected on re-serialize. Callers building a fresh
// config from scratch that want the strict IAMF-imposed constraints
// enforced can call MetadataBlocks[0].StreamInfo.Validate() directly.
func (f Flac) Validate() error {
	if len(f.MetadataBlocks) == 0 {
		return errors.New("flac: metadata block chain must not be empty")
	}
	if f.MetadataBlocks[0].BlockType != FlacStreamInfo {
		return errors.New("flac: first metadata block must be StreamInfo")
	}
	for i, b := range f.MetadataBlocks {
		isLastIdx := i == len(f.MetadataBlocks)-1
		if b.Last != isLastIdx {
			return errors.Errorf("flac: metadata block %d has last_metadata_block_flag=%v, want %v", i, b.Last, isLastIdx)
		}
	}
	return f.MetadataBlocks[0].StreamInfo.validateLoose()
}

// Write serializes f to w.
func (f Flac) Write(w *bits.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for _, b := range f.MetadataBlocks {
		if err := b.write(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadFlac parses a FLAC decoder config (the whole metadata block chain)
// from r.
func ReadFlac(r *bits.Reader) (Flac, error) {
	var f Flac
	for {
		b, err := readFlacMetadataBlock(r)
		if err != nil {
			return Flac{}, err
		}
		f.MetadataBlocks = append(f.MetadataBlocks, b)
		if b.Last {
			break
		}
	}
	if f.MetadataBlocks[0].BlockType != FlacStreamInfo {
		return Flac{}, errors.New("flac: first metadata block must be StreamInfo")
	}
	return f, nil
}

// RequiredAudioRollDistance is always 0 for FLAC.
func (f Flac) RequiredAudioRollDistance() int16 { return 0 }

// OutputSampleRate returns the StreamInfo sample rate, or 0 if f has no
// metadata blocks (an unvalidated Flac config).
func (f Flac) OutputSampleRate() uint32 {
	if len(f.MetadataBlocks) == 0 {
		return 0
	}
	return f.MetadataBlocks[0].StreamInfo.SampleRate
}

// BitDepthToMeasureLoudness returns the StreamInfo effective
// bits-per-sample, or 0 if f has no metadata blocks (an unvalidated Flac
// config).
func (f Flac) BitDepthToMeasureLoudness() uint8 {
	if len(f.MetadataBlocks) == 0 {
		return 0
	}
	return f.MetadataBlocks[0].StreamInfo.BitsPerSample + 1
}
