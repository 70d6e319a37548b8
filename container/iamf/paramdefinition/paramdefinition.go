/*
NAME
  paramdefinition.go - the shared ParamDefinition family (§4.3): the
  parameter-definition objects referenced by audio-element and
  mix-presentation OBUs, which supply the duration/subblock schedule of
  parameter blocks whose param_definition_mode is 0.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package paramdefinition implements the ParamDefinition family shared by
// audio-element and mix-presentation OBUs: the duration/subblock schedule
// common to every parameter type, plus the MixGain/Demixing/ReconGain/
// Extension type-specific tails.
package paramdefinition

import (
	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/animatedmixgain"
	"github.com/ausocean/iamf/container/iamf/bits"
)

// Type identifies a parameter's type-specific tail.
type Type uint8

// Parameter types recognized by IAMF.
const (
	TypeMixGain   Type = 0
	TypeDemixing  Type = 1
	TypeReconGain Type = 2
	TypeExtension Type = 3
)

// DemixingMode enumerates the Demixing parameter's 3-bit mode discriminator.
type DemixingMode uint8

// Demixing modes per §4.8.
const (
	Demixing1         DemixingMode = 0
	Demixing2         DemixingMode = 1
	Demixing3         DemixingMode = 2
	DemixingReserved1 DemixingMode = 3
	Demixing1n        DemixingMode = 4
	Demixing2n        DemixingMode = 5
	Demixing3n        DemixingMode = 6
	DemixingReserved2 DemixingMode = 7
)

// ReconstructableChannelCount is the number of channels a ReconGain flag
// bitmask can mark, per §4.8.
const ReconstructableChannelCount = 7

// MixGainTail is MixGain's type-specific tail: a default mix-gain value plus
// the animation applied to samples within the default-value's interval.
type MixGainTail struct {
	DefaultMixGain int16 // Q7.8
	Animation      animatedmixgain.Animation
}

// DemixingTail is Demixing's type-specific tail.
type DemixingTail struct {
	Mode DemixingMode
}

// ExtensionTail is Extension's type-specific tail: an opaque payload whose
// meaning is defined outside this package.
type ExtensionTail struct {
	Data []byte
}

// Definition is a parameter definition shared by the audio-element and
// mix-presentation OBUs that reference it. Parameter blocks whose
// ParamDefinitionMode is false take their duration/subblock schedule from
// it.
type Definition struct {
	ParameterID      uint64
	ParameterRate    uint64 // non-zero
	ParamDefinitionMode bool

	// The following fields are only meaningful when ParamDefinitionMode is
	// false; when true, the enclosing Parameter Block OBU carries them
	// instead.
	Duration                 uint64
	ConstantSubblockDuration uint64
	// SubblockDurations holds one entry per subblock when
	// ConstantSubblockDuration == 0; otherwise it is empty and durations are
	// implicit.
	SubblockDurations []uint64

	Type      Type
	MixGain   MixGainTail   // valid iff Type == TypeMixGain
	Demixing  DemixingTail  // valid iff Type == TypeDemixing
	Extension ExtensionTail // valid iff Type == TypeExtension
}

// NumSubblocks returns the number of subblocks, implicit or explicit.
func (d Definition) NumSubblocks() (uint64, error) {
	if d.ConstantSubblockDuration != 0 {
		n := d.Duration / d.ConstantSubblockDuration
		if d.Duration%d.ConstantSubblockDuration != 0 {
			n++
		}
		return n, nil
	}
	return uint64(len(d.SubblockDurations)), nil
}

// SubblockDuration returns the duration of subblock i.
func (d Definition) SubblockDuration(i uint64) (uint64, error) {
	if d.ConstantSubblockDuration != 0 {
		n, err := d.NumSubblocks()
		if err != nil {
			return 0, err
		}
		if i >= n {
			return 0, errors.Errorf("paramdefinition: subblock index %d out of range [0, %d)", i, n)
		}
		if i == n-1 {
			last := d.Duration - i*d.ConstantSubblockDuration
			return last, nil
		}
		return d.ConstantSubblockDuration, nil
	}
	if i >= uint64(len(d.SubblockDurations)) {
		return 0, errors.Errorf("paramdefinition: subblock index %d out of range [0, %d)", i, len(d.SubblockDurations))
	}
	return d.SubblockDurations[i], nil
}

// Validate checks the common schedule invariants plus the type-specific tail.
func (d Definition) Validate() error {
	if d.ParameterRate == 0 {
		return errors.New("paramdefinition: parameter_rate must be non-zero")
	}
	if !d.ParamDefinitionMode {
		if err := d.validateSchedule(); err != nil {
			return err
		}
	}
	switch d.Type {
	case TypeMixGain:
		return errors.Wrap(d.MixGain.Animation.Validate(), "paramdefinition: mix_gain animation")
	case TypeDemixing:
		if d.Demixing.Mode > DemixingReserved2 {
			return errors.Errorf("paramdefinition: demixing mode %d out of range", d.Demixing.Mode)
		}
	case TypeReconGain, TypeExtension:
	default:
		return errors.Errorf("paramdefinition: unknown parameter type %d", d.Type)
	}
	return nil
}

func (d Definition) validateSchedule() error {
	if d.ConstantSubblockDuration != 0 {
		return nil
	}
	var sum uint64
	for _, dur := range d.SubblockDurations {
		sum += dur
	}
	if sum != d.Duration {
		return errors.Errorf("paramdefinition: sum of explicit subblock durations %d != duration %d", sum, d.Duration)
	}
	return nil
}

// writeSchedule writes the duration/constant_subblock_duration/num_subblocks
// fields and, if applicable, the explicit per-subblock durations.
func (d Definition) writeSchedule(w *bits.Writer) error {
	if err := w.WriteUleb128(d.Duration); err != nil {
		return err
	}
	if err := w.WriteUleb128(d.ConstantSubblockDuration); err != nil {
		return err
	}
	if d.ConstantSubblockDuration == 0 {
		if err := w.WriteUleb128(uint64(len(d.SubblockDurations))); err != nil {
			return err
		}
		for _, dur := range d.SubblockDurations {
			if err := w.WriteUleb128(dur); err != nil {
				return err
			}
		}
	}
	return nil
}

func readSchedule(r *bits.Reader) (duration, constantSubblockDuration uint64, subblockDurations []uint64, err error) {
	duration, _, err = r.ReadUleb128()
	if err != nil {
		return
	}
	constantSubblockDuration, _, err = r.ReadUleb128()
	if err != nil {
		return
	}
	if constantSubblockDuration == 0 {
		numSubblocks, _, e := r.ReadUleb128()
		if e != nil {
			err = e
			return
		}
		subblockDurations = make([]uint64, numSubblocks)
		for i := range subblockDurations {
			subblockDurations[i], _, err = r.ReadUleb128()
			if err != nil {
				return
			}
		}
	}
	return
}

// Write serializes d to w, including the type-specific tail.
func (d Definition) Write(w *bits.Writer) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := w.WriteUleb128(d.ParameterID); err != nil {
		return err
	}
	if err := w.WriteUleb128(d.ParameterRate); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(d.ParamDefinitionMode), 1); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(0, 7); err != nil { // reserved
		return err
	}
	if !d.ParamDefinitionMode {
		if err := d.writeSchedule(w); err != nil {
			return err
		}
	}
	switch d.Type {
	case TypeMixGain:
		if err := w.WriteSigned16(d.MixGain.DefaultMixGain); err != nil {
			return err
		}
		return d.MixGain.Animation.Write(w)
	case TypeDemixing:
		if err := w.WriteUnsignedLiteral(uint64(d.Demixing.Mode), 3); err != nil {
			return err
		}
		return w.WriteUnsignedLiteral(0, 5) // reserved
	case TypeReconGain:
		return nil
	case TypeExtension:
		if err := w.WriteUleb128(uint64(len(d.Extension.Data))); err != nil {
			return err
		}
		return w.WriteUint8Span(d.Extension.Data)
	default:
		return errors.Errorf("paramdefinition: unknown parameter type %d", d.Type)
	}
}

// Read parses a Definition of the given type from r.
func Read(r *bits.Reader, t Type) (Definition, error) {
	d := Definition{Type: t}
	var err error
	d.ParameterID, _, err = r.ReadUleb128()
	if err != nil {
		return Definition{}, err
	}
	d.ParameterRate, _, err = r.ReadUleb128()
	if err != nil {
		return Definition{}, err
	}
	mode, err := r.ReadUnsignedLiteral(1)
	if err != nil {
		return Definition{}, err
	}
	d.ParamDefinitionMode = mode != 0
	if _, err := r.ReadUnsignedLiteral(7); err != nil { // reserved
		return Definition{}, err
	}
	if !d.ParamDefinitionMode {
		d.Duration, d.ConstantSubblockDuration, d.SubblockDurations, err = readSchedule(r)
		if err != nil {
			return Definition{}, err
		}
	}
	switch t {
	case TypeMixGain:
		gain, err := r.ReadSigned16()
		if err != nil {
			return Definition{}, err
		}
		d.MixGain.DefaultMixGain = gain
		d.MixGain.Animation, err = animatedmixgain.Read(r)
		if err != nil {
			return Definition{}, err
		}
	case TypeDemixing:
		mode, err := r.ReadUnsignedLiteral(3)
		if err != nil {
			return Definition{}, err
		}
		d.Demixing.Mode = DemixingMode(mode)
		if _, err := r.ReadUnsignedLiteral(5); err != nil {
			return Definition{}, err
		}
	case TypeReconGain:
	case TypeExtension:
		length, _, err := r.ReadUleb128()
		if err != nil {
			return Definition{}, err
		}
		d.Extension.Data, err = r.ReadUint8Span(int(length))
		if err != nil {
			return Definition{}, err
		}
	default:
		return Definition{}, errors.Errorf("paramdefinition: unknown parameter type %d", t)
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
