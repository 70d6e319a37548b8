/*
NAME
  mix_presentation.go - the Mix Presentation OBU (§4.7): localized
  annotations, sub-mixes referencing audio elements, rendering layouts,
  and loudness-info records.

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
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
)

// RenderingLayoutType selects how a rendering layout's speaker
// configuration is specified.
type RenderingLayoutType uint64

// Rendering layout types per §4.7.
const (
	RenderingLayoutLoudspeakersSoundSystem RenderingLayoutType = 0
	RenderingLayoutBinaural                RenderingLayoutType = 1
	RenderingLayoutReserved                RenderingLayoutType = 15
)

// SoundSystem enumerates a loudspeaker rendering layout's speaker
// configuration; the mapping from value to physical speaker placement is
// fixed by the IAMF specification and is not exercised by this library,
// which treats the value as an opaque wire tag.
type SoundSystem uint64

// The first and last sound systems named in the specification; values in
// between are accepted as opaque tags without validation against a
// hard-coded table.
const (
	SoundSystemA_0_2_0   SoundSystem = 0
	SoundSystem14_5_7_4  SoundSystem = 13
)

// LocalizedString is a (language_tag, value) annotation pair.
type LocalizedString struct {
	Language string
	Value    string
}

func writeLocalizedStrings(w *bits.Writer, strs []LocalizedString) error {
	if len(strs) > 0xFF {
		return errors.Wrapf(ErrInvalidArgument, "annotation count %d exceeds a byte", len(strs))
	}
	if err := w.WriteUnsignedLiteral(uint64(len(strs)), 8); err != nil {
		return err
	}
	for _, s := range strs {
		if err := w.WriteString(s.Language); err != nil {
			return err
		}
		if err := w.WriteString(s.Value); err != nil {
			return err
		}
	}
	return nil
}

func readLocalizedStrings(r *bits.Reader) ([]LocalizedString, error) {
	count, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return nil, err
	}
	strs := make([]LocalizedString, count)
	for i := range strs {
		lang, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		val, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		strs[i] = LocalizedString{Language: lang, Value: val}
	}
	return strs, nil
}

// AnchoredLoudnessElement is one entry of a loudness-info's anchored
// loudness records.
type AnchoredLoudnessElement struct {
	AnchorElement uint8 // 0 = dialogue, 1 = album, others reserved
	AnchoredLoudness int16 // Q7.8
}

// Loudness-info bitmask flags.
const (
	LoudnessInfoHasTruePeak        uint8 = 1 << 0
	LoudnessInfoHasAnchoredLoudness uint8 = 1 << 1
)

// LoudnessInfo is the loudness-info record attached to a rendering layout.
type LoudnessInfo struct {
	InfoType           uint8 // bitmask of LoudnessInfoHas* flags
	IntegratedLoudness int16 // Q7.8
	DigitalPeak        int16 // Q7.8

	TruePeak int16 // Q7.8; valid iff InfoType&LoudnessInfoHasTruePeak != 0

	// Valid iff InfoType&LoudnessInfoHasAnchoredLoudness != 0.
	AnchoredLoudnessElements []AnchoredLoudnessElement
}

func (l LoudnessInfo) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(l.InfoType), 8); err != nil {
		return err
	}
	if err := w.WriteSigned16(l.IntegratedLoudness); err != nil {
		return err
	}
	if err := w.WriteSigned16(l.DigitalPeak); err != nil {
		return err
	}
	if l.InfoType&LoudnessInfoHasTruePeak != 0 {
		if err := w.WriteSigned16(l.TruePeak); err != nil {
			return err
		}
	}
	if l.InfoType&LoudnessInfoHasAnchoredLoudness != 0 {
		if len(l.AnchoredLoudnessElements) > 0xFF {
			return errors.Wrapf(ErrInvalidArgument, "anchored loudness element count %d exceeds a byte", len(l.AnchoredLoudnessElements))
		}
		if err := w.WriteUnsignedLiteral(uint64(len(l.AnchoredLoudnessElements)), 8); err != nil {
			return err
		}
		for _, e := range l.AnchoredLoudnessElements {
			if err := w.WriteUnsignedLiteral(uint64(e.AnchorElement), 8); err != nil {
				return err
			}
			if err := w.WriteSigned16(e.AnchoredLoudness); err != nil {
				return err
			}
		}
	}
	return nil
}

func readLoudnessInfo(r *bits.Reader) (LoudnessInfo, error) {
	var l LoudnessInfo
	v, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return l, err
	}
	l.InfoType = uint8(v)
	l.IntegratedLoudness, err = r.ReadSigned16()
	if err != nil {
		return l, err
	}
	l.DigitalPeak, err = r.ReadSigned16()
	if err != nil {
		return l, err
	}
	if l.InfoType&LoudnessInfoHasTruePeak != 0 {
		l.TruePeak, err = r.ReadSigned16()
		if err != nil {
			return l, err
		}
	}
	if l.InfoType&LoudnessInfoHasAnchoredLoudness != 0 {
		count, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return l, err
		}
		l.AnchoredLoudnessElements = make([]AnchoredLoudnessElement, count)
		for i := range l.AnchoredLoudnessElements {
			anchor, err := r.ReadUnsignedLiteral(8)
			if err != nil {
				return l, err
			}
			gain, err := r.ReadSigned16()
			if err != nil {
				return l, err
			}
			l.AnchoredLoudnessElements[i] = AnchoredLoudnessElement{AnchorElement: uint8(anchor), AnchoredLoudness: gain}
		}
	}
	return l, nil
}

// RenderingLayout is one entry of a sub-mix's layout list.
type RenderingLayout struct {
	Type        RenderingLayoutType
	SoundSystem SoundSystem // valid iff Type == RenderingLayoutLoudspeakersSoundSystem
	Loudness    LoudnessInfo
}

func (l RenderingLayout) write(w *bits.Writer) error {
	if err := w.WriteUleb128(uint64(l.Type)); err != nil {
		return err
	}
	if l.Type == RenderingLayoutLoudspeakersSoundSystem {
		if err := w.WriteUleb128(uint64(l.SoundSystem)); err != nil {
			return err
		}
	}
	return l.Loudness.write(w)
}

func readRenderingLayout(r *bits.Reader) (RenderingLayout, error) {
	t, _, err := r.ReadUleb128()
	if err != nil {
		return RenderingLayout{}, err
	}
	l := RenderingLayout{Type: RenderingLayoutType(t)}
	if l.Type == RenderingLayoutLoudspeakersSoundSystem {
		ss, _, err := r.ReadUleb128()
		if err != nil {
			return RenderingLayout{}, err
		}
		l.SoundSystem = SoundSystem(ss)
	}
	l.Loudness, err = readLoudnessInfo(r)
	return l, err
}

// SubMixAudioElement references one audio element contributing to a
// sub-mix, with its own localized annotations and element mix gain.
type SubMixAudioElement struct {
	AudioElementID  uint64
	Annotations     []LocalizedString
	ElementMixGain  paramdefinition.Definition // Type must be TypeMixGain
}

func (e SubMixAudioElement) write(w *bits.Writer) error {
	if err := w.WriteUleb128(e.AudioElementID); err != nil {
		return err
	}
	if err := writeLocalizedStrings(w, e.Annotations); err != nil {
		return err
	}
	return e.ElementMixGain.Write(w)
}

func readSubMixAudioElement(r *bits.Reader) (SubMixAudioElement, error) {
	var e SubMixAudioElement
	var err error
	e.AudioElementID, _, err = r.ReadUleb128()
	if err != nil {
		return e, err
	}
	e.Annotations, err = readLocalizedStrings(r)
	if err != nil {
		return e, err
	}
	e.ElementMixGain, err = paramdefinition.Read(r, paramdefinition.TypeMixGain)
	return e, err
}

// SubMix is one entry of a Mix Presentation's sub-mix list.
type SubMix struct {
	AudioElements []SubMixAudioElement
	OutputMixGain paramdefinition.Definition // Type must be TypeMixGain
	Layouts       []RenderingLayout
}

func (s SubMix) validate() error {
	if len(s.AudioElements) == 0 {
		return errors.New("iamf: sub-mix must reference at least one audio element")
	}
	if s.OutputMixGain.Type != paramdefinition.TypeMixGain {
		return errors.New("iamf: sub-mix output_mix_gain must have parameter type MixGain")
	}
	for _, e := range s.AudioElements {
		if e.ElementMixGain.Type != paramdefinition.TypeMixGain {
			return errors.New("iamf: sub-mix element_mix_gain must have parameter type MixGain")
		}
	}
	return nil
}

func (s SubMix) write(w *bits.Writer) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := w.WriteUleb128(uint64(len(s.AudioElements))); err != nil {
		return err
	}
	for _, e := range s.AudioElements {
		if err := e.write(w); err != nil {
			return err
		}
	}
	if err := s.OutputMixGain.Write(w); err != nil {
		return err
	}
	if err := w.WriteUleb128(uint64(len(s.Layouts))); err != nil {
		return err
	}
	for _, l := range s.Layouts {
		if err := l.write(w); err != nil {
			return err
		}
	}
	return nil
}

func readSubMix(r *bits.Reader) (SubMix, error) {
	var s SubMix
	numElements, _, err := r.ReadUleb128()
	if err != nil {
		return s, err
	}
	s.AudioElements = make([]SubMixAudioElement, numElements)
	for i := range s.AudioElements {
		s.AudioElements[i], err = readSubMixAudioElement(r)
		if err != nil {
			return s, err
		}
	}
	s.OutputMixGain, err = paramdefinition.Read(r, paramdefinition.TypeMixGain)
	if err != nil {
		return s, err
	}
	numLayouts, _, err := r.ReadUleb128()
	if err != nil {
		return s, err
	}
	s.Layouts = make([]RenderingLayout, numLayouts)
	for i := range s.Layouts {
		s.Layouts[i], err = readRenderingLayout(r)
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

// MixPresentation is the Mix Presentation OBU (§4.7).
type MixPresentation struct {
	MixPresentationID uint64
	Annotations       []LocalizedString
	SubMixes          []SubMix

	header ObuHeader
	footer []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping.
func (m MixPresentation) Footer() []byte { return m.footer }

// Validate checks field constraints and every sub-mix's invariants.
func (m MixPresentation) Validate() error {
	if len(m.SubMixes) == 0 {
		return errors.New("iamf: mix presentation must have at least one sub-mix")
	}
	for _, s := range m.SubMixes {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Write serializes m, including its OBU header, to w.
func (m MixPresentation) Write(w *bits.Writer) error {
	if err := m.Validate(); err != nil {
		return err
	}
	payload := bits.NewWriter(w.PolicyForScratch())
	if err := payload.WriteUleb128(m.MixPresentationID); err != nil {
		return err
	}
	if err := writeLocalizedStrings(payload, m.Annotations); err != nil {
		return err
	}
	if err := payload.WriteUleb128(uint64(len(m.SubMixes))); err != nil {
		return err
	}
	for _, s := range m.SubMixes {
		if err := s.write(payload); err != nil {
			return err
		}
	}
	if err := payload.WriteUint8Span(m.footer); err != nil {
		return err
	}

	hdr := m.header
	hdr.ObuType = ObuMixPresentation
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadMixPresentation parses a Mix Presentation OBU, including its
// header, from r.
func ReadMixPresentation(r *bits.Reader) (MixPresentation, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return MixPresentation{}, err
	}
	if hdr.ObuType != ObuMixPresentation {
		return MixPresentation{}, errors.Errorf("iamf: expected MixPresentation obu_type, got %s", hdr.ObuType)
	}
	start := r.BytePosition()

	var m MixPresentation
	m.header = hdr
	m.MixPresentationID, _, err = r.ReadUleb128()
	if err != nil {
		return MixPresentation{}, err
	}
	m.Annotations, err = readLocalizedStrings(r)
	if err != nil {
		return MixPresentation{}, err
	}
	numSubMixes, _, err := r.ReadUleb128()
	if err != nil {
		return MixPresentation{}, err
	}
	m.SubMixes = make([]SubMix, numSubMixes)
	for i := range m.SubMixes {
		m.SubMixes[i], err = readSubMix(r)
		if err != nil {
			return MixPresentation{}, err
		}
	}
	consumed := r.BytePosition() - start
	m.footer, err = r.ReadUint8Span(int(payloadSize) - consumed)
	if err != nil {
		return MixPresentation{}, err
	}
	if err := m.Validate(); err != nil {
		return MixPresentation{}, err
	}
	return m, nil
}
