package iamf

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/decoderconfig"
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
)

func scenario1Descriptors(t *testing.T) DescriptorSet {
	t.Helper()
	codecConfig, err := NewCodecConfig(1, FourCCLPCM, 960, 0, false)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	codecConfig.LPCM = decoderconfig.LPCM{SampleSize: 16, SampleRate: 48000}

	audioElement := AudioElement{
		AudioElementID:   1,
		AudioElementType: AudioElementSceneBased,
		CodecConfigID:    1,
		SubstreamIDs:     []uint64{18},
		SceneBased: SceneBasedConfig{
			Mode: AmbisonicsModeMono,
			Mono: MonoConfig{
				OutputChannelCount: 1,
				SubstreamCount:     1,
				ChannelMapping:     []uint8{0},
			},
		},
	}

	mixGain := paramdefinition.Definition{
		ParameterID:              1,
		ParameterRate:            48000,
		ParamDefinitionMode:      true,
		Type:                     paramdefinition.TypeMixGain,
		ConstantSubblockDuration: 1000,
		Duration:                 1000,
	}
	mixPresentation := MixPresentation{
		MixPresentationID: 1,
		SubMixes: []SubMix{
			{
				AudioElements: []SubMixAudioElement{
					{AudioElementID: 1, ElementMixGain: mixGain},
				},
				OutputMixGain: mixGain,
			},
		},
	}

	return DescriptorSet{
		IASequenceHeader: IASequenceHeader{PrimaryProfile: ProfileSimple, AdditionalProfile: ProfileBase},
		CodecConfigs:      []CodecConfig{codecConfig},
		AudioElements:     []AudioElement{audioElement},
		MixPresentations:  []MixPresentation{mixPresentation},
	}
}

func serializeDescriptors(t *testing.T, ds DescriptorSet) []byte {
	t.Helper()
	s := NewObuSequencer(bits.Minimal, nil)
	if err := s.PushDescriptors(ds, nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}
	data, ok := s.GetSerializedDescriptorObus()
	if !ok {
		t.Fatal("expected serialized descriptors")
	}
	return data
}

func TestDecoderEmptyDescriptorStream(t *testing.T) {
	ds := scenario1Descriptors(t)
	data := serializeDescriptors(t, ds)

	// CreateFromDescriptors treats data as a complete, self-contained
	// descriptor block and does not require a trailing Temporal Delimiter
	// to recognize completion, unlike the incremental Decode API below.
	got, err := CreateFromDescriptors(data, nil)
	if err != nil {
		t.Fatalf("CreateFromDescriptors: %v", err)
	}
	if got.IASequenceHeader.PrimaryProfile != ProfileSimple {
		t.Errorf("got primary_profile %d, want %d", got.IASequenceHeader.PrimaryProfile, ProfileSimple)
	}

	// The first OBU is the IA Sequence Header; its obu_type occupies the
	// upper 5 bits of the first byte and must equal 31.
	if got := data[0] >> 3; got != uint8(ObuIASequenceHeader) {
		t.Errorf("got first obu_type %d, want %d", got, ObuIASequenceHeader)
	}
}

func TestDecoderDescriptorChunking(t *testing.T) {
	ds := scenario1Descriptors(t)
	data := serializeDescriptors(t, ds)

	w := bits.NewWriter(bits.Minimal)
	if err := (TemporalDelimiter{}).Write(w); err != nil {
		t.Fatalf("TemporalDelimiter.Write: %v", err)
	}
	data = append(data, w.Bytes()...)

	d := NewStreamDecoder(nil)
	if err := d.Decode(data[:2]); err != nil {
		t.Fatalf("Decode prefix: %v", err)
	}
	if d.IsDescriptorProcessingComplete() {
		t.Fatal("expected descriptor processing incomplete after a 2-byte prefix")
	}
	if err := d.Decode(data[2:]); err != nil {
		t.Fatalf("Decode remainder: %v", err)
	}
	if !d.IsDescriptorProcessingComplete() {
		t.Fatal("expected descriptor processing complete after the remainder")
	}
}

func TestDecoderTemporalDelimiterTerminatesDescriptors(t *testing.T) {
	ds := scenario1Descriptors(t)
	data := serializeDescriptors(t, ds)

	w := bits.NewWriter(bits.Minimal)
	if err := (TemporalDelimiter{}).Write(w); err != nil {
		t.Fatalf("TemporalDelimiter.Write: %v", err)
	}
	data = append(data, w.Bytes()...)

	d := NewStreamDecoder(nil)
	if err := d.Decode(data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.IsDescriptorProcessingComplete() {
		t.Fatal("expected descriptor processing complete once a temporal delimiter is seen")
	}
}

func TestDecoderOpusRollDistanceOverride(t *testing.T) {
	c, err := NewCodecConfig(1, FourCCOpus, 120, 0, true)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	if c.AudioRollDistance != -32 {
		t.Errorf("got audio_roll_distance %d, want -32", c.AudioRollDistance)
	}
}

func TestDecoderParameterBlockResolvesRegisteredDefinition(t *testing.T) {
	ds := scenario1Descriptors(t)
	data := serializeDescriptors(t, ds)

	d := NewStreamDecoder(nil)
	if err := d.Decode(data); err != nil {
		t.Fatalf("Decode descriptors: %v", err)
	}

	pb := ParameterBlock{
		ParameterID:              1,
		Duration:                 1000,
		ConstantSubblockDuration: 1000,
		Definition: paramdefinition.Definition{
			ParameterID:              1,
			ParamDefinitionMode:      true,
			ConstantSubblockDuration: 1000,
			Duration:                 1000,
			Type:                     paramdefinition.TypeMixGain,
		},
		Subblocks: []Subblock{{}},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := pb.Write(w); err != nil {
		t.Fatalf("ParameterBlock.Write: %v", err)
	}

	td := bits.NewWriter(bits.Minimal)
	if err := (TemporalDelimiter{}).Write(td); err != nil {
		t.Fatalf("TemporalDelimiter.Write: %v", err)
	}

	if err := d.Decode(td.Bytes()); err != nil {
		t.Fatalf("Decode temporal delimiter: %v", err)
	}
	if err := d.Decode(w.Bytes()); err != nil {
		t.Fatalf("Decode parameter block: %v", err)
	}
	d.Flush()

	tu, ok := d.NextTemporalUnit()
	if !ok {
		t.Fatal("expected a completed temporal unit")
	}
	if len(tu.ParameterBlocks) != 1 || tu.ParameterBlocks[0].ParameterID != 1 {
		t.Errorf("got %+v, want one parameter block with id 1", tu.ParameterBlocks)
	}
}

func TestDecoderRejectsUnregisteredParameterID(t *testing.T) {
	d := NewStreamDecoder(nil)
	ds := scenario1Descriptors(t)
	data := serializeDescriptors(t, ds)
	if err := d.Decode(data); err != nil {
		t.Fatalf("Decode descriptors: %v", err)
	}

	pb := ParameterBlock{
		ParameterID: 99,
		Definition: paramdefinition.Definition{
			ParameterID:              99,
			ConstantSubblockDuration: 1000,
			Duration:                 1000,
			Type:                     paramdefinition.TypeMixGain,
		},
		Subblocks: []Subblock{{}},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := pb.Write(w); err != nil {
		t.Fatalf("ParameterBlock.Write: %v", err)
	}
	if err := d.Decode(w.Bytes()); err == nil {
		t.Fatal("expected error decoding a parameter block with an unregistered parameter_id")
	}
}
