/*
NAME
  parameter_block.go - the Parameter Block OBU (§4.8): a schedule of
  subblocks carrying MixGain, Demixing, ReconGain, or opaque extension
  data for one registered parameter.

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

	"github.com/ausocean/iamf/container/iamf/animatedmixgain"
	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
)

// MixGainData is the MixGain ParameterData variant.
type MixGainData struct {
	Animation animatedmixgain.Animation
}

// DemixingData is the Demixing ParameterData variant. Only one subblock
// is allowed per parameter block when the registered parameter type is
// Demixing.
type DemixingData struct {
	Mode paramdefinition.DemixingMode
}

// ReconGainData is the ReconGain ParameterData variant: for each layer of
// the enclosing audio element whose recon_gain_is_present_flag is set, a
// flag bitmask of which reconstructable channels carry a gain, followed
// by one byte per set bit.
type ReconGainData struct {
	// PerLayer has one entry per layer of the enclosing audio element
	// whose recon_gain_is_present_flag is set, in layer order.
	PerLayer []ReconGainLayer
}

// ReconGainLayer is one layer's recon-gain record.
type ReconGainLayer struct {
	FlagMask uint64 // ULEB128, bit i set iff reconstructable channel i carries a gain
	Gains    []uint8 // one per set bit in FlagMask, in ascending bit order
}

// ExtensionData is the opaque-payload ParameterData variant.
type ExtensionData struct {
	Data []byte
}

// Subblock is one subblock of a Parameter Block OBU's schedule.
type Subblock struct {
	// Duration is only present on the wire when the enclosing block's
	// ParamDefinitionMode is true and ConstantSubblockDuration is 0; the
	// sum of every subblock's Duration in that case must equal the
	// enclosing block's Duration.
	Duration uint64

	MixGain   MixGainData
	Demixing  DemixingData
	ReconGain ReconGainData
	Extension ExtensionData
}

func writeReconGainLayer(w *bits.Writer, l ReconGainLayer) error {
	if err := w.WriteUleb128(l.FlagMask); err != nil {
		return err
	}
	return w.WriteUint8Span(l.Gains)
}

func readReconGainLayer(r *bits.Reader) (ReconGainLayer, error) {
	mask, _, err := r.ReadUleb128()
	if err != nil {
		return ReconGainLayer{}, err
	}
	var numSet int
	for b := mask; b != 0; b &= b - 1 {
		numSet++
	}
	gains, err := r.ReadUint8Span(numSet)
	if err != nil {
		return ReconGainLayer{}, err
	}
	return ReconGainLayer{FlagMask: mask, Gains: gains}, nil
}

func writeSubblock(w *bits.Writer, t paramdefinition.Type, s Subblock) error {
	switch t {
	case paramdefinition.TypeMixGain:
		return s.MixGain.Animation.Write(w)
	case paramdefinition.TypeDemixing:
		if err := w.WriteUnsignedLiteral(uint64(s.Demixing.Mode), 3); err != nil {
			return err
		}
		return w.WriteUnsignedLiteral(0, 5) // reserved
	case paramdefinition.TypeReconGain:
		for _, l := range s.ReconGain.PerLayer {
			if err := writeReconGainLayer(w, l); err != nil {
				return err
			}
		}
		return nil
	case paramdefinition.TypeExtension:
		if err := w.WriteUleb128(uint64(len(s.Extension.Data))); err != nil {
			return err
		}
		return w.WriteUint8Span(s.Extension.Data)
	default:
		return errors.Errorf("iamf: unknown parameter type %d", t)
	}
}

func readSubblock(r *bits.Reader, t paramdefinition.Type, numReconGainLayers int) (Subblock, error) {
	var s Subblock
	switch t {
	case paramdefinition.TypeMixGain:
		a, err := animatedmixgain.Read(r)
		if err != nil {
			return s, err
		}
		s.MixGain = MixGainData{Animation: a}
	case paramdefinition.TypeDemixing:
		mode, err := r.ReadUnsignedLiteral(3)
		if err != nil {
			return s, err
		}
		s.Demixing.Mode = paramdefinition.DemixingMode(mode)
		if _, err := r.ReadUnsignedLiteral(5); err != nil {
			return s, err
		}
	case paramdefinition.TypeReconGain:
		s.ReconGain.PerLayer = make([]ReconGainLayer, numReconGainLayers)
		for i := range s.ReconGain.PerLayer {
			l, err := readReconGainLayer(r)
			if err != nil {
				return s, err
			}
			s.ReconGain.PerLayer[i] = l
		}
	case paramdefinition.TypeExtension:
		length, _, err := r.ReadUleb128()
		if err != nil {
			return s, err
		}
		s.Extension.Data, err = r.ReadUint8Span(int(length))
		if err != nil {
			return s, err
		}
	default:
		return s, errors.Errorf("iamf: unknown parameter type %d", t)
	}
	return s, nil
}

// ParameterBlock is the Parameter Block OBU (§4.8). The registered
// Definition supplies the parameter's type and, when ParamDefinitionMode
// is false, its duration/subblock schedule.
type ParameterBlock struct {
	ParameterID uint64

	// The following three are only meaningful, and only present on the
	// wire, when Definition.ParamDefinitionMode is true.
	Duration                 uint64
	ConstantSubblockDuration uint64
	ExplicitNumSubblocks     uint64 // present iff ConstantSubblockDuration == 0

	Subblocks []Subblock

	// Definition is the registered parameter definition this block
	// refers to; it is not serialized as part of this OBU (it was
	// already written by the audio-element or mix-presentation OBU that
	// owns it), but is required to resolve the schedule and parameter
	// type.
	Definition paramdefinition.Definition

	// NumReconGainLayers is required to parse ReconGain parameter types:
	// the number of audio-element layers with recon_gain_is_present_flag
	// set. Not serialized.
	NumReconGainLayers int

	header ObuHeader
	footer []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping.
func (p ParameterBlock) Footer() []byte { return p.footer }

// GetDuration returns the effective duration, deferring to the parameter
// block when ParamDefinitionMode is true, otherwise to the definition.
func (p ParameterBlock) GetDuration() uint64 {
	if p.Definition.ParamDefinitionMode {
		return p.Duration
	}
	return p.Definition.Duration
}

// GetConstantSubblockDuration returns the effective constant subblock
// duration.
func (p ParameterBlock) GetConstantSubblockDuration() uint64 {
	if p.Definition.ParamDefinitionMode {
		return p.ConstantSubblockDuration
	}
	return p.Definition.ConstantSubblockDuration
}

// GetNumSubblocks returns the effective subblock count, implicit or
// explicit.
func (p ParameterBlock) GetNumSubblocks() (uint64, error) {
	if !p.Definition.ParamDefinitionMode {
		return p.Definition.NumSubblocks()
	}
	if p.ConstantSubblockDuration != 0 {
		n := p.Duration / p.ConstantSubblockDuration
		if p.Duration%p.ConstantSubblockDuration != 0 {
			n++
		}
		return n, nil
	}
	return p.ExplicitNumSubblocks, nil
}

// GetSubblockDuration returns the duration of subblock i.
func (p ParameterBlock) GetSubblockDuration(i uint64) (uint64, error) {
	if !p.Definition.ParamDefinitionMode {
		d, err := p.Definition.SubblockDuration(i)
		if err != nil {
			return 0, errors.Wrap(ErrInvalidArgument, err.Error())
		}
		return d, nil
	}
	n, err := p.GetNumSubblocks()
	if err != nil {
		return 0, err
	}
	if i >= n {
		return 0, errors.Wrapf(ErrInvalidArgument, "iamf: subblock index %d out of range [0, %d)", i, n)
	}
	if p.ConstantSubblockDuration != 0 {
		if i == n-1 {
			return p.Duration - i*p.ConstantSubblockDuration, nil
		}
		return p.ConstantSubblockDuration, nil
	}
	if int(i) >= len(p.Subblocks) {
		return 0, errors.Wrapf(ErrInvalidArgument, "iamf: subblock durations have not been initialized for index %d", i)
	}
	return p.Subblocks[i].Duration, nil
}

// validateSubblockDurations checks that a Demixing block has at most one
// subblock and that, when subblock durations are carried explicitly
// (ParamDefinitionMode true, ConstantSubblockDuration 0), their sum equals
// the declared Duration.
func (p ParameterBlock) validateSubblockDurations() error {
	if p.Definition.Type == paramdefinition.TypeDemixing && len(p.Subblocks) > 1 {
		return errors.Wrapf(ErrInvalidArgument, "iamf: demixing parameter block has %d subblocks, only one is allowed", len(p.Subblocks))
	}
	if !p.Definition.ParamDefinitionMode || p.ConstantSubblockDuration != 0 {
		return nil
	}
	var total uint64
	for _, s := range p.Subblocks {
		total += s.Duration
	}
	if total != p.Duration {
		return errors.Wrapf(ErrInvalidArgument, "iamf: sum of subblock durations %d does not match duration %d", total, p.Duration)
	}
	return nil
}

// GetMixGain locates the subblock containing relativeTime and interpolates
// within it. Fails if the parameter type is not MixGain, if relativeTime
// lies outside the block's duration, or subblock durations are
// inconsistent.
func (p ParameterBlock) GetMixGain(relativeTime uint64) (int16, error) {
	if p.Definition.Type != paramdefinition.TypeMixGain {
		return 0, errors.Wrap(ErrInvalidArgument, "iamf: GetMixGain requires a MixGain parameter")
	}
	if relativeTime > p.GetDuration() {
		return 0, errors.Wrapf(ErrInvalidArgument, "iamf: relative_time %d exceeds duration %d", relativeTime, p.GetDuration())
	}
	numSubblocks, err := p.GetNumSubblocks()
	if err != nil {
		return 0, err
	}
	var start uint64
	for i := uint64(0); i < numSubblocks; i++ {
		dur, err := p.GetSubblockDuration(i)
		if err != nil {
			return 0, err
		}
		end := start + dur
		if relativeTime >= start && relativeTime <= end {
			if int(i) >= len(p.Subblocks) {
				return 0, errors.Wrapf(ErrInvalidArgument, "iamf: missing subblock data for index %d", i)
			}
			return p.Subblocks[i].MixGain.Animation.Interpolate(int64(start), int64(end), int64(relativeTime))
		}
		start = end
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "iamf: relative_time %d not covered by any subblock", relativeTime)
}

// Write serializes p, including its OBU header, to w. It fails if explicit
// subblock durations are in play and their sum does not match Duration.
func (p ParameterBlock) Write(w *bits.Writer) error {
	if err := p.validateSubblockDurations(); err != nil {
		return err
	}

	explicitSubblockDurations := p.Definition.ParamDefinitionMode && p.ConstantSubblockDuration == 0

	payload := bits.NewWriter(w.PolicyForScratch())
	if err := payload.WriteUleb128(p.ParameterID); err != nil {
		return err
	}
	if p.Definition.ParamDefinitionMode {
		if err := payload.WriteUleb128(p.Duration); err != nil {
			return err
		}
		if err := payload.WriteUleb128(p.ConstantSubblockDuration); err != nil {
			return err
		}
		if p.ConstantSubblockDuration == 0 {
			if err := payload.WriteUleb128(p.ExplicitNumSubblocks); err != nil {
				return err
			}
		}
	}
	for _, s := range p.Subblocks {
		if explicitSubblockDurations {
			if err := payload.WriteUleb128(s.Duration); err != nil {
				return err
			}
		}
		if err := writeSubblock(payload, p.Definition.Type, s); err != nil {
			return err
		}
	}
	if err := payload.WriteUint8Span(p.footer); err != nil {
		return err
	}

	hdr := p.header
	hdr.ObuType = ObuParameterBlock
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadParameterBlock parses a Parameter Block OBU, including its header,
// from r. def is the registered parameter definition this block refers
// to, and numReconGainLayers the number of audio-element layers whose
// recon_gain_is_present_flag is set (only required for ReconGain
// parameters).
func ReadParameterBlock(r *bits.Reader, def paramdefinition.Definition, numReconGainLayers int) (ParameterBlock, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return ParameterBlock{}, err
	}
	if hdr.ObuType != ObuParameterBlock {
		return ParameterBlock{}, errors.Errorf("iamf: expected ParameterBlock obu_type, got %s", hdr.ObuType)
	}
	start := r.BytePosition()

	p := ParameterBlock{Definition: def, NumReconGainLayers: numReconGainLayers, header: hdr}
	p.ParameterID, _, err = r.ReadUleb128()
	if err != nil {
		return ParameterBlock{}, err
	}
	if def.ParamDefinitionMode {
		p.Duration, _, err = r.ReadUleb128()
		if err != nil {
			return ParameterBlock{}, err
		}
		p.ConstantSubblockDuration, _, err = r.ReadUleb128()
		if err != nil {
			return ParameterBlock{}, err
		}
		if p.ConstantSubblockDuration == 0 {
			p.ExplicitNumSubblocks, _, err = r.ReadUleb128()
			if err != nil {
				return ParameterBlock{}, err
			}
		}
	}

	numSubblocks, err := p.GetNumSubblocks()
	if err != nil {
		return ParameterBlock{}, err
	}
	explicitSubblockDurations := def.ParamDefinitionMode && p.ConstantSubblockDuration == 0
	p.Subblocks = make([]Subblock, numSubblocks)
	for i := range p.Subblocks {
		var duration uint64
		if explicitSubblockDurations {
			duration, _, err = r.ReadUleb128()
			if err != nil {
				return ParameterBlock{}, err
			}
		}
		p.Subblocks[i], err = readSubblock(r, def.Type, numReconGainLayers)
		if err != nil {
			return ParameterBlock{}, err
		}
		p.Subblocks[i].Duration = duration
	}
	if err := p.validateSubblockDurations(); err != nil {
		return ParameterBlock{}, err
	}
	consumed := r.BytePosition() - start
	p.footer, err = r.ReadUint8Span(int(payloadSize) - consumed)
	if err != nil {
		return ParameterBlock{}, err
	}
	return p, nil
}
