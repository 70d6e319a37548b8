/*
NAME
  audio_element.go - the Audio Element OBU (§4.6): channel-based,
  scene-based (ambisonics mono/projection), and extension configs.

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

// AudioElementType selects an Audio Element's config variant.
type AudioElementType uint8

// Audio element types per §4.6.
const (
	AudioElementChannelBased AudioElementType = 0
	AudioElementSceneBased   AudioElementType = 1
	// Values >= 2 are extension types, caller-defined.
)

// LoudspeakerLayout identifies a channel-based layer's loudspeaker layout.
type LoudspeakerLayout uint8

// Well-known loudspeaker layouts; LoudspeakerLayoutExpanded signals an
// additional expanded_loudspeaker_layout byte follows.
const (
	LoudspeakerLayoutMono          LoudspeakerLayout = 0
	LoudspeakerLayoutStereo        LoudspeakerLayout = 1
	LoudspeakerLayout5_1           LoudspeakerLayout = 2
	LoudspeakerLayout5_1_2         LoudspeakerLayout = 3
	LoudspeakerLayout5_1_4         LoudspeakerLayout = 4
	LoudspeakerLayout7_1           LoudspeakerLayout = 5
	LoudspeakerLayout7_1_2         LoudspeakerLayout = 6
	LoudspeakerLayout7_1_4         LoudspeakerLayout = 7
	LoudspeakerLayout3_1_2         LoudspeakerLayout = 8
	LoudspeakerLayoutBinaural      LoudspeakerLayout = 9
	LoudspeakerLayoutExpanded      LoudspeakerLayout = 15
)

// AmbisonicsMode selects a scene-based config's ambisonics variant.
type AmbisonicsMode uint64

// Ambisonics modes per §4.6.
const (
	AmbisonicsModeMono       AmbisonicsMode = 0
	AmbisonicsModeProjection AmbisonicsMode = 1
)

// ChannelAudioLayerConfig is one layer record of a channel-based config.
type ChannelAudioLayerConfig struct {
	LoudspeakerLayout        LoudspeakerLayout
	OutputGainIsPresentFlag  bool
	ReconGainIsPresentFlag   bool
	SubstreamCount           uint8
	CoupledSubstreamCount    uint8

	// Present iff OutputGainIsPresentFlag.
	OutputGainFlags uint8 // 6 bits
	OutputGain      int16 // Q7.8

	// Present iff LoudspeakerLayout == LoudspeakerLayoutExpanded.
	ExpandedLoudspeakerLayout uint8
}

func (l ChannelAudioLayerConfig) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(l.LoudspeakerLayout), 4); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(l.OutputGainIsPresentFlag), 1); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(boolToUint64(l.ReconGainIsPresentFlag), 1); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(0, 2); err != nil { // reserved
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(l.SubstreamCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(l.CoupledSubstreamCount), 8); err != nil {
		return err
	}
	if l.OutputGainIsPresentFlag {
		if err := w.WriteUnsignedLiteral(uint64(l.OutputGainFlags), 6); err != nil {
			return err
		}
		if err := w.WriteUnsignedLiteral(0, 2); err != nil { // reserved
			return err
		}
		if err := w.WriteSigned16(l.OutputGain); err != nil {
			return err
		}
	}
	if l.LoudspeakerLayout == LoudspeakerLayoutExpanded {
		if err := w.WriteUnsignedLiteral(uint64(l.ExpandedLoudspeakerLayout), 8); err != nil {
			return err
		}
	}
	return nil
}

func readChannelAudioLayerConfig(r *bits.Reader) (ChannelAudioLayerConfig, error) {
	var l ChannelAudioLayerConfig
	layout, err := r.ReadUnsignedLiteral(4)
	if err != nil {
		return l, err
	}
	l.LoudspeakerLayout = LoudspeakerLayout(layout)
	v, err := r.ReadUnsignedLiteral(1)
	if err != nil {
		return l, err
	}
	l.OutputGainIsPresentFlag = v != 0
	v, err = r.ReadUnsignedLiteral(1)
	if err != nil {
		return l, err
	}
	l.ReconGainIsPresentFlag = v != 0
	if _, err := r.ReadUnsignedLiteral(2); err != nil {
		return l, err
	}
	substreamCount, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return l, err
	}
	l.SubstreamCount = uint8(substreamCount)
	coupled, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return l, err
	}
	l.CoupledSubstreamCount = uint8(coupled)
	if l.OutputGainIsPresentFlag {
		flags, err := r.ReadUnsignedLiteral(6)
		if err != nil {
			return l, err
		}
		l.OutputGainFlags = uint8(flags)
		if _, err := r.ReadUnsignedLiteral(2); err != nil {
			return l, err
		}
		l.OutputGain, err = r.ReadSigned16()
		if err != nil {
			return l, err
		}
	}
	if l.LoudspeakerLayout == LoudspeakerLayoutExpanded {
		expanded, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return l, err
		}
		l.ExpandedLoudspeakerLayout = uint8(expanded)
	}
	return l, nil
}

// ChannelBasedConfig is the config variant for AudioElementChannelBased.
type ChannelBasedConfig struct {
	Layers []ChannelAudioLayerConfig // 1 to 6
}

func (c ChannelBasedConfig) validate(numSubstreams uint64) error {
	if len(c.Layers) < 1 || len(c.Layers) > 6 {
		return errors.Errorf("iamf: channel-based config must have 1-6 layers, got %d", len(c.Layers))
	}
	var total uint64
	for _, l := range c.Layers {
		total += uint64(l.SubstreamCount)
		if l.LoudspeakerLayout == LoudspeakerLayoutBinaural && len(c.Layers) != 1 {
			return errors.New("iamf: binaural loudspeaker layout requires exactly one layer")
		}
	}
	if total != numSubstreams {
		return errors.Errorf("iamf: cumulative layer substream_count %d != num_substreams %d", total, numSubstreams)
	}
	return nil
}

func (c ChannelBasedConfig) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(len(c.Layers)), 3); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(0, 5); err != nil { // reserved
		return err
	}
	for _, l := range c.Layers {
		if err := l.write(w); err != nil {
			return err
		}
	}
	return nil
}

func readChannelBasedConfig(r *bits.Reader) (ChannelBasedConfig, error) {
	numLayers, err := r.ReadUnsignedLiteral(3)
	if err != nil {
		return ChannelBasedConfig{}, err
	}
	if _, err := r.ReadUnsignedLiteral(5); err != nil {
		return ChannelBasedConfig{}, err
	}
	c := ChannelBasedConfig{Layers: make([]ChannelAudioLayerConfig, numLayers)}
	for i := range c.Layers {
		c.Layers[i], err = readChannelAudioLayerConfig(r)
		if err != nil {
			return ChannelBasedConfig{}, err
		}
	}
	return c, nil
}

// MonoConfig is the scene-based config for AmbisonicsModeMono.
type MonoConfig struct {
	OutputChannelCount uint8
	SubstreamCount     uint8
	// ChannelMapping has OutputChannelCount entries, each a substream index
	// in [0, SubstreamCount) or 255 meaning the channel is dropped.
	ChannelMapping []uint8
}

func (c MonoConfig) validate() error {
	valid := false
	for n := 0; n <= 14; n++ {
		if int(c.OutputChannelCount) == (n+1)*(n+1) {
			valid = true
			break
		}
	}
	if !valid {
		return errors.Errorf("iamf: ambisonics mono output_channel_count %d is not (n+1)^2 for n in [0,14]", c.OutputChannelCount)
	}
	if c.SubstreamCount > c.OutputChannelCount {
		return errors.Errorf("iamf: ambisonics mono substream_count %d exceeds output_channel_count %d", c.SubstreamCount, c.OutputChannelCount)
	}
	if len(c.ChannelMapping) != int(c.OutputChannelCount) {
		return errors.Errorf("iamf: channel_mapping length %d != output_channel_count %d", len(c.ChannelMapping), c.OutputChannelCount)
	}
	seen := make(map[uint8]bool)
	for _, idx := range c.ChannelMapping {
		if idx == 255 {
			continue
		}
		if idx >= c.SubstreamCount {
			return errors.Errorf("iamf: channel_mapping substream index %d out of range [0, %d)", idx, c.SubstreamCount)
		}
		if seen[idx] {
			return errors.Errorf("iamf: channel_mapping substream index %d appears more than once", idx)
		}
		seen[idx] = true
	}
	for i := uint8(0); i < c.SubstreamCount; i++ {
		if !seen[i] {
			return errors.Errorf("iamf: channel_mapping is missing substream index %d", i)
		}
	}
	return nil
}

func (c MonoConfig) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(c.OutputChannelCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(c.SubstreamCount), 8); err != nil {
		return err
	}
	return w.WriteUint8Span(c.ChannelMapping)
}

func readMonoConfig(r *bits.Reader) (MonoConfig, error) {
	var c MonoConfig
	v, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return c, err
	}
	c.OutputChannelCount = uint8(v)
	v, err = r.ReadUnsignedLiteral(8)
	if err != nil {
		return c, err
	}
	c.SubstreamCount = uint8(v)
	c.ChannelMapping, err = r.ReadUint8Span(int(c.OutputChannelCount))
	if err != nil {
		return c, err
	}
	return c, nil
}

// ProjectionConfig is the scene-based config for AmbisonicsModeProjection.
type ProjectionConfig struct {
	OutputChannelCount    uint8
	SubstreamCount        uint8
	CoupledSubstreamCount uint8
	// DemixingMatrix has shape (SubstreamCount + CoupledSubstreamCount) x
	// OutputChannelCount, row-major, each entry a signed 16-bit value.
	DemixingMatrix []int16
}

func (c ProjectionConfig) validate() error {
	if c.CoupledSubstreamCount > c.SubstreamCount {
		return errors.Errorf("iamf: ambisonics projection coupled_substream_count %d exceeds substream_count %d", c.CoupledSubstreamCount, c.SubstreamCount)
	}
	if uint64(c.SubstreamCount)+uint64(c.CoupledSubstreamCount) > uint64(c.OutputChannelCount) {
		return errors.Errorf("iamf: ambisonics projection substream_count + coupled_substream_count exceeds output_channel_count %d", c.OutputChannelCount)
	}
	want := (int(c.SubstreamCount) + int(c.CoupledSubstreamCount)) * int(c.OutputChannelCount)
	if len(c.DemixingMatrix) != want {
		return errors.Errorf("iamf: demixing_matrix length %d != expected %d", len(c.DemixingMatrix), want)
	}
	return nil
}

func (c ProjectionConfig) write(w *bits.Writer) error {
	if err := w.WriteUnsignedLiteral(uint64(c.OutputChannelCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(c.SubstreamCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsignedLiteral(uint64(c.CoupledSubstreamCount), 8); err != nil {
		return err
	}
	for _, v := range c.DemixingMatrix {
		if err := w.WriteSigned16(v); err != nil {
			return err
		}
	}
	return nil
}

func readProjectionConfig(r *bits.Reader) (ProjectionConfig, error) {
	var c ProjectionConfig
	v, err := r.ReadUnsignedLiteral(8)
	if err != nil {
		return c, err
	}
	c.OutputChannelCount = uint8(v)
	v, err = r.ReadUnsignedLiteral(8)
	if err != nil {
		return c, err
	}
	c.SubstreamCount = uint8(v)
	v, err = r.ReadUnsignedLiteral(8)
	if err != nil {
		return c, err
	}
	c.CoupledSubstreamCount = uint8(v)
	n := (int(c.SubstreamCount) + int(c.CoupledSubstreamCount)) * int(c.OutputChannelCount)
	c.DemixingMatrix = make([]int16, n)
	for i := range c.DemixingMatrix {
		c.DemixingMatrix[i], err = r.ReadSigned16()
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

// SceneBasedConfig is the config variant for AudioElementSceneBased.
type SceneBasedConfig struct {
	Mode       AmbisonicsMode
	Mono       MonoConfig       // valid iff Mode == AmbisonicsModeMono
	Projection ProjectionConfig // valid iff Mode == AmbisonicsModeProjection
}

func (c SceneBasedConfig) validate() error {
	switch c.Mode {
	case AmbisonicsModeMono:
		return c.Mono.validate()
	case AmbisonicsModeProjection:
		return c.Projection.validate()
	default:
		return errors.Errorf("iamf: unknown ambisonics_mode %d", c.Mode)
	}
}

func (c SceneBasedConfig) write(w *bits.Writer) error {
	if err := w.WriteUleb128(uint64(c.Mode)); err != nil {
		return err
	}
	switch c.Mode {
	case AmbisonicsModeMono:
		return c.Mono.write(w)
	case AmbisonicsModeProjection:
		return c.Projection.write(w)
	default:
		return errors.Errorf("iamf: unknown ambisonics_mode %d", c.Mode)
	}
}

func readSceneBasedConfig(r *bits.Reader) (SceneBasedConfig, error) {
	mode, _, err := r.ReadUleb128()
	if err != nil {
		return SceneBasedConfig{}, err
	}
	c := SceneBasedConfig{Mode: AmbisonicsMode(mode)}
	switch c.Mode {
	case AmbisonicsModeMono:
		c.Mono, err = readMonoConfig(r)
	case AmbisonicsModeProjection:
		c.Projection, err = readProjectionConfig(r)
	default:
		return SceneBasedConfig{}, errors.Errorf("iamf: unknown ambisonics_mode %d", c.Mode)
	}
	return c, err
}

// ExtensionConfig is the config variant for audio_element_type >= 2.
type ExtensionConfig struct {
	Data []byte
}

// AudioElementParameter is one entry of an Audio Element's parameter list.
// MixGain is forbidden here (§4.6); every parameter must have a unique
// ParamDefinitionType within the audio element.
type AudioElementParameter struct {
	ParamDefinitionType uint64
	Definition          paramdefinition.Definition
}

// AudioElement is the Audio Element OBU (§4.6).
type AudioElement struct {
	AudioElementID   uint64
	AudioElementType AudioElementType
	CodecConfigID    uint64
	SubstreamIDs     []uint64
	Parameters       []AudioElementParameter

	ChannelBased ChannelBasedConfig // valid iff AudioElementType == AudioElementChannelBased
	SceneBased   SceneBasedConfig   // valid iff AudioElementType == AudioElementSceneBased
	Extension    ExtensionConfig    // valid iff AudioElementType >= 2

	// ReservedBits carries the 5 reserved bits following audio_element_type,
	// preserved verbatim for bit-exact round-tripping rather than forced
	// to zero.
	ReservedBits uint8 // 5 bits

	header ObuHeader
	footer []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping.
func (a AudioElement) Footer() []byte { return a.footer }

// Validate checks field constraints, substream-count consistency, and
// parameter-type uniqueness.
func (a AudioElement) Validate() error {
	for _, p := range a.Parameters {
		if paramdefinition.Type(p.ParamDefinitionType) == paramdefinition.TypeMixGain {
			return errors.Wrap(ErrInvalidArgument, "mix_gain parameter type is forbidden on an audio element")
		}
	}
	types := make([]uint32, len(a.Parameters))
	for i, p := range a.Parameters {
		types[i] = uint32(p.ParamDefinitionType)
	}
	if err := ValidateUniqueUint32(types, "audio element parameter param_definition_type"); err != nil {
		return err
	}

	switch a.AudioElementType {
	case AudioElementChannelBased:
		return a.ChannelBased.validate(uint64(len(a.SubstreamIDs)))
	case AudioElementSceneBased:
		return a.SceneBased.validate()
	default:
		return nil
	}
}

// Write serializes a, including its OBU header, to w.
func (a AudioElement) Write(w *bits.Writer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	payload := bits.NewWriter(w.PolicyForScratch())
	if err := payload.WriteUleb128(a.AudioElementID); err != nil {
		return err
	}
	if err := payload.WriteUnsignedLiteral(uint64(a.AudioElementType), 3); err != nil {
		return err
	}
	if err := payload.WriteUnsignedLiteral(uint64(a.ReservedBits), 5); err != nil {
		return err
	}
	if err := payload.WriteUleb128(a.CodecConfigID); err != nil {
		return err
	}
	if err := payload.WriteUleb128(uint64(len(a.SubstreamIDs))); err != nil {
		return err
	}
	for _, id := range a.SubstreamIDs {
		if err := payload.WriteUleb128(id); err != nil {
			return err
		}
	}
	if err := payload.WriteUleb128(uint64(len(a.Parameters))); err != nil {
		return err
	}
	for _, p := range a.Parameters {
		if err := payload.WriteUleb128(p.ParamDefinitionType); err != nil {
			return err
		}
		if err := p.Definition.Write(payload); err != nil {
			return err
		}
	}

	switch a.AudioElementType {
	case AudioElementChannelBased:
		if err := a.ChannelBased.write(payload); err != nil {
			return err
		}
	case AudioElementSceneBased:
		if err := a.SceneBased.write(payload); err != nil {
			return err
		}
	default:
		if err := payload.WriteUleb128(uint64(len(a.Extension.Data))); err != nil {
			return err
		}
		if err := payload.WriteUint8Span(a.Extension.Data); err != nil {
			return err
		}
	}
	if err := payload.WriteUint8Span(a.footer); err != nil {
		return err
	}

	hdr := a.header
	hdr.ObuType = ObuAudioElement
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadAudioElement parses an Audio Element OBU, including its header,
// from r.
func ReadAudioElement(r *bits.Reader) (AudioElement, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return AudioElement{}, err
	}
	if hdr.ObuType != ObuAudioElement {
		return AudioElement{}, errors.Errorf("iamf: expected AudioElement obu_type, got %s", hdr.ObuType)
	}
	start := r.BytePosition()

	var a AudioElement
	a.header = hdr
	a.AudioElementID, _, err = r.ReadUleb128()
	if err != nil {
		return AudioElement{}, err
	}
	t, err := r.ReadUnsignedLiteral(3)
	if err != nil {
		return AudioElement{}, err
	}
	a.AudioElementType = AudioElementType(t)
	reserved, err := r.ReadUnsignedLiteral(5)
	if err != nil {
		return AudioElement{}, err
	}
	a.ReservedBits = uint8(reserved)
	a.CodecConfigID, _, err = r.ReadUleb128()
	if err != nil {
		return AudioElement{}, err
	}
	numSubstreams, _, err := r.ReadUleb128()
	if err != nil {
		return AudioElement{}, err
	}
	a.SubstreamIDs = make([]uint64, numSubstreams)
	for i := range a.SubstreamIDs {
		a.SubstreamIDs[i], _, err = r.ReadUleb128()
		if err != nil {
			return AudioElement{}, err
		}
	}
	numParameters, _, err := r.ReadUleb128()
	if err != nil {
		return AudioElement{}, err
	}
	a.Parameters = make([]AudioElementParameter, numParameters)
	for i := range a.Parameters {
		paramType, _, err := r.ReadUleb128()
		if err != nil {
			return AudioElement{}, err
		}
		a.Parameters[i].ParamDefinitionType = paramType
		a.Parameters[i].Definition, err = paramdefinition.Read(r, paramdefinition.Type(paramType))
		if err != nil {
			return AudioElement{}, err
		}
	}

	switch a.AudioElementType {
	case AudioElementChannelBased:
		a.ChannelBased, err = readChannelBasedConfig(r)
	case AudioElementSceneBased:
		a.SceneBased, err = readSceneBasedConfig(r)
	default:
		length, _, e := r.ReadUleb128()
		if e != nil {
			return AudioElement{}, e
		}
		a.Extension.Data, err = r.ReadUint8Span(int(length))
	}
	if err != nil {
		return AudioElement{}, err
	}
	consumed := r.BytePosition() - start
	a.footer, err = r.ReadUint8Span(int(payloadSize) - consumed)
	if err != nil {
		return AudioElement{}, err
	}
	if err := a.Validate(); err != nil {
		return AudioElement{}, err
	}
	return a, nil
}
