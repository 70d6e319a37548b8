package iamf

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/animatedmixgain"
	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
)

func mixGainDefinition(start int16) paramdefinition.Definition {
	return paramdefinition.Definition{
		ParameterID:              1,
		ParameterRate:            48000,
		ParamDefinitionMode:      true,
		Type:                     paramdefinition.TypeMixGain,
		MixGain: paramdefinition.MixGainTail{
			DefaultMixGain: start,
			Animation:      animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: start},
		},
	}
}

func TestMixPresentationRoundTrip(t *testing.T) {
	m := MixPresentation{
		MixPresentationID: 1,
		Annotations:       []LocalizedString{{Language: "en-us", Value: "Default mix"}},
		SubMixes: []SubMix{
			{
				AudioElements: []SubMixAudioElement{
					{AudioElementID: 1, ElementMixGain: mixGainDefinition(0)},
				},
				OutputMixGain: mixGainDefinition(0),
				Layouts: []RenderingLayout{
					{
						Type:        RenderingLayoutLoudspeakersSoundSystem,
						SoundSystem: SoundSystemA_0_2_0,
						Loudness:    LoudnessInfo{IntegratedLoudness: -2560, DigitalPeak: -256},
					},
				},
			},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := m.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadMixPresentation(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.MixPresentationID != m.MixPresentationID || len(got.SubMixes) != 1 {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if got.SubMixes[0].Layouts[0].Loudness.IntegratedLoudness != -2560 {
		t.Errorf("got integrated_loudness %d, want -2560", got.SubMixes[0].Layouts[0].Loudness.IntegratedLoudness)
	}
}

func TestMixPresentationFooterRoundTrip(t *testing.T) {
	m := MixPresentation{
		MixPresentationID: 1,
		SubMixes: []SubMix{
			{
				AudioElements: []SubMixAudioElement{
					{AudioElementID: 1, ElementMixGain: mixGainDefinition(0)},
				},
				OutputMixGain: mixGainDefinition(0),
			},
		},
		footer: []byte{0x01, 0x02, 0x03},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := m.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadMixPresentation(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got.Footer()) != string(m.footer) {
		t.Errorf("got footer %v, want %v", got.Footer(), m.footer)
	}
}

func TestMixPresentationLoudnessInfoTruePeakRoundTrip(t *testing.T) {
	loudness := LoudnessInfo{
		InfoType:           LoudnessInfoHasTruePeak | LoudnessInfoHasAnchoredLoudness,
		IntegratedLoudness: -1000,
		DigitalPeak:        -100,
		TruePeak:           -50,
		AnchoredLoudnessElements: []AnchoredLoudnessElement{
			{AnchorElement: 0, AnchoredLoudness: -1200},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := loudness.write(w); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readLoudnessInfo(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.TruePeak != -50 || len(got.AnchoredLoudnessElements) != 1 {
		t.Errorf("got %+v, want true_peak=-50 with 1 anchored element", got)
	}
}

func TestMixPresentationRejectsEmptySubMixes(t *testing.T) {
	m := MixPresentation{MixPresentationID: 1}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for no sub-mixes")
	}
}

func TestSubMixRejectsNonMixGainOutputGain(t *testing.T) {
	s := SubMix{
		AudioElements: []SubMixAudioElement{{AudioElementID: 1, ElementMixGain: mixGainDefinition(0)}},
		OutputMixGain: paramdefinition.Definition{Type: paramdefinition.TypeReconGain},
	}
	if err := s.validate(); err == nil {
		t.Fatal("expected error for non-MixGain output_mix_gain")
	}
}
