package iamf

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/animatedmixgain"
	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
)

func paramBlockMixGainDefinition(paramDefinitionMode bool) paramdefinition.Definition {
	return paramdefinition.Definition{
		ParameterID:              9,
		ParameterRate:            48000,
		ParamDefinitionMode:      paramDefinitionMode,
		Duration:                 1000,
		ConstantSubblockDuration: 1000,
		Type:                     paramdefinition.TypeMixGain,
	}
}

func TestParameterBlockMixGainRoundTrip(t *testing.T) {
	def := paramBlockMixGainDefinition(false)
	p := ParameterBlock{
		ParameterID: def.ParameterID,
		Definition:  def,
		Subblocks: []Subblock{
			{MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 256}}},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadParameterBlock(bits.NewReader(w.Bytes()), def, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ParameterID != p.ParameterID {
		t.Errorf("got parameter_id %d, want %d", got.ParameterID, p.ParameterID)
	}
	if got.Subblocks[0].MixGain.Animation != p.Subblocks[0].MixGain.Animation {
		t.Errorf("got animation %+v, want %+v", got.Subblocks[0].MixGain.Animation, p.Subblocks[0].MixGain.Animation)
	}
}

func TestParameterBlockExplicitSubblockDurationsRoundTrip(t *testing.T) {
	def := paramBlockMixGainDefinition(true)
	def.ConstantSubblockDuration = 0
	p := ParameterBlock{
		ParameterID:              def.ParameterID,
		Duration:                 300,
		ConstantSubblockDuration: 0,
		ExplicitNumSubblocks:     2,
		Definition:               def,
		Subblocks: []Subblock{
			{Duration: 100, MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 10}}},
			{Duration: 200, MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 20}}},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadParameterBlock(bits.NewReader(w.Bytes()), def, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Subblocks[0].Duration != 100 || got.Subblocks[1].Duration != 200 {
		t.Errorf("got subblock durations %d, %d; want 100, 200", got.Subblocks[0].Duration, got.Subblocks[1].Duration)
	}
}

func TestParameterBlockSubblockDurationMismatchRejected(t *testing.T) {
	def := paramBlockMixGainDefinition(true)
	def.ConstantSubblockDuration = 0
	p := ParameterBlock{
		ParameterID:              def.ParameterID,
		Duration:                 300,
		ConstantSubblockDuration: 0,
		ExplicitNumSubblocks:     2,
		Definition:               def,
		Subblocks: []Subblock{
			{Duration: 100, MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 10}}},
			{Duration: 150, MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 20}}},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err == nil {
		t.Fatal("expected error: subblock durations sum to 250, not 300")
	}
}

func TestParameterBlockGetMixGainLinearMidpoint(t *testing.T) {
	def := paramBlockMixGainDefinition(false)
	def.ConstantSubblockDuration = 100
	def.Duration = 100
	p := ParameterBlock{
		ParameterID: def.ParameterID,
		Definition:  def,
		Subblocks: []Subblock{
			{MixGain: MixGainData{Animation: animatedmixgain.Animation{
				Type:       animatedmixgain.Linear,
				StartPoint: 0,
				EndPoint:   256, // 1.0 in Q7.8
			}}},
		},
	}
	got, err := p.GetMixGain(50)
	if err != nil {
		t.Fatalf("GetMixGain: %v", err)
	}
	if got != 128 { // arithmetic mean of 0 and 256
		t.Errorf("got %d, want 128", got)
	}
}

func TestParameterBlockFooterRoundTrip(t *testing.T) {
	def := paramBlockMixGainDefinition(false)
	p := ParameterBlock{
		ParameterID: def.ParameterID,
		Definition:  def,
		Subblocks: []Subblock{
			{MixGain: MixGainData{Animation: animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 1}}},
		},
		footer: []byte{0x07},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadParameterBlock(bits.NewReader(w.Bytes()), def, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got.Footer()) != string(p.footer) {
		t.Errorf("got footer %v, want %v", got.Footer(), p.footer)
	}
}

func TestParameterBlockDemixingOnlyOneSubblockAllowed(t *testing.T) {
	def := paramdefinition.Definition{
		ParameterID:              3,
		ParameterRate:            48000,
		ParamDefinitionMode:      false,
		Duration:                 100,
		ConstantSubblockDuration: 100,
		Type:                     paramdefinition.TypeDemixing,
	}
	p := ParameterBlock{
		ParameterID: def.ParameterID,
		Definition:  def,
		Subblocks: []Subblock{
			{Demixing: DemixingData{Mode: paramdefinition.Demixing1}},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadParameterBlock(bits.NewReader(w.Bytes()), def, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Subblocks) != 1 || got.Subblocks[0].Demixing.Mode != paramdefinition.Demixing1 {
		t.Errorf("got %+v, want one subblock with mode Demixing1", got.Subblocks)
	}
}

func TestParameterBlockReconGainRoundTrip(t *testing.T) {
	def := paramdefinition.Definition{
		ParameterID:              4,
		ParameterRate:            48000,
		ParamDefinitionMode:      false,
		Duration:                 100,
		ConstantSubblockDuration: 100,
		Type:                     paramdefinition.TypeReconGain,
	}
	p := ParameterBlock{
		ParameterID:        def.ParameterID,
		Definition:          def,
		NumReconGainLayers: 2,
		Subblocks: []Subblock{
			{ReconGain: ReconGainData{PerLayer: []ReconGainLayer{
				{FlagMask: 0b101, Gains: []uint8{10, 20}},
				{FlagMask: 0b1, Gains: []uint8{30}},
			}}},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := p.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadParameterBlock(bits.NewReader(w.Bytes()), def, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	layers := got.Subblocks[0].ReconGain.PerLayer
	if len(layers) != 2 || layers[0].FlagMask != 0b101 || layers[1].FlagMask != 0b1 {
		t.Errorf("got layers %+v", layers)
	}
}
