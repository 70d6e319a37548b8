/*
NAME
  obutype.go - the obu_type enum and IAMF FourCCs.

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

// ObuType identifies the kind of an OBU; it occupies the top 5 bits of the
// OBU header.
type ObuType uint8

// OBU type values, locked to the IAMF specification.
const (
	ObuCodecConfig ObuType = 0
	ObuAudioElement ObuType = 1
	ObuMixPresentation ObuType = 2
	ObuParameterBlock ObuType = 3
	ObuTemporalDelimiter ObuType = 4
	ObuAudioFrame ObuType = 5
	// ObuAudioFrameID0 through ObuAudioFrameID17 are the 18 implicit-id
	// audio frame variants; obu_type - ObuAudioFrameID0 is the substream
	// id.
	ObuAudioFrameID0  ObuType = 6
	ObuAudioFrameID1  ObuType = 7
	ObuAudioFrameID2  ObuType = 8
	ObuAudioFrameID3  ObuType = 9
	ObuAudioFrameID4  ObuType = 10
	ObuAudioFrameID5  ObuType = 11
	ObuAudioFrameID6  ObuType = 12
	ObuAudioFrameID7  ObuType = 13
	ObuAudioFrameID8  ObuType = 14
	ObuAudioFrameID9  ObuType = 15
	ObuAudioFrameID10 ObuType = 16
	ObuAudioFrameID11 ObuType = 17
	ObuAudioFrameID12 ObuType = 18
	ObuAudioFrameID13 ObuType = 19
	ObuAudioFrameID14 ObuType = 20
	ObuAudioFrameID15 ObuType = 21
	ObuAudioFrameID16 ObuType = 22
	ObuAudioFrameID17 ObuType = 23
	// ObuReserved24 through ObuReserved30 are reserved OBU types.
	ObuReserved24 ObuType = 24
	ObuReserved25 ObuType = 25
	ObuReserved26 ObuType = 26
	ObuReserved27 ObuType = 27
	ObuReserved28 ObuType = 28
	ObuReserved29 ObuType = 29
	ObuReserved30 ObuType = 30
	ObuIASequenceHeader ObuType = 31
)

// Metadata and Arbitrary OBUs are not assigned dedicated values in the
// locked obu_type enum; both are carried in the reserved range and are
// told apart by their obu_type value. DefaultMetadataObuType and
// DefaultArbitraryObuType are the values this package uses unless a
// caller overrides ObuType on the Metadata/Arbitrary value directly.
const (
	DefaultMetadataObuType  = ObuReserved24
	DefaultArbitraryObuType = ObuReserved25
)

// IsAudioFrameImplicit reports whether t is one of the 18 implicit-id audio
// frame variants, and if so returns the substream id implied by t.
func (t ObuType) IsAudioFrameImplicit() (substreamID int, ok bool) {
	if t >= ObuAudioFrameID0 && t <= ObuAudioFrameID17 {
		return int(t - ObuAudioFrameID0), true
	}
	return 0, false
}

// IsDescriptor reports whether t belongs to the descriptor-OBU set (as
// opposed to temporal-unit OBUs).
func (t ObuType) IsDescriptor() bool {
	switch t {
	case ObuIASequenceHeader, ObuCodecConfig, ObuAudioElement, ObuMixPresentation:
		return true
	default:
		return false
	}
}

func (t ObuType) String() string {
	switch t {
	case ObuCodecConfig:
		return "CodecConfig"
	case ObuAudioElement:
		return "AudioElement"
	case ObuMixPresentation:
		return "MixPresentation"
	case ObuParameterBlock:
		return "ParameterBlock"
	case ObuTemporalDelimiter:
		return "TemporalDelimiter"
	case ObuAudioFrame:
		return "AudioFrame"
	case ObuIASequenceHeader:
		return "IASequenceHeader"
	default:
		if substreamID, ok := t.IsAudioFrameImplicit(); ok {
			return "AudioFrameId" + itoa(substreamID)
		}
		return "Reserved"
	}
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// FourCC codec identifiers.
const (
	FourCCLPCM  = "ipcm"
	FourCCOpus  = "Opus"
	FourCCFLAC  = "fLaC"
	FourCCAACLC = "mp4a"
)

// IAMagic is the 4-byte magic word that opens an IA Sequence Header,
// interpreted big-endian as 0x69616d66 ("iamf").
const IAMagic = "iamf"

// IACode is IAMagic interpreted as a big-endian uint32.
const IACode uint32 = 0x69616d66

// kEntireObuSizeMaxTwoMegabytes bounds the entire encoded OBU, header
// included.
const kEntireObuSizeMaxTwoMegabytes = 2097152

// kMaxPracticalFrameSize bounds num_samples_per_frame in a Codec Config
// OBU to a generously large but finite value, since the spec only
// requires it be non-zero and fit a uint32.
const kMaxPracticalFrameSize = 1 << 20
