package paramdefinition

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/animatedmixgain"
	"github.com/ausocean/iamf/container/iamf/bits"
)

func TestNumSubblocksImplicitCeilsDivision(t *testing.T) {
	d := Definition{Duration: 10, ConstantSubblockDuration: 3}
	n, err := d.NumSubblocks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("got %d, want 4", n)
	}
}

func TestSubblockDurationLastIsShorter(t *testing.T) {
	d := Definition{Duration: 10, ConstantSubblockDuration: 3}
	last, err := d.SubblockDuration(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 1 {
		t.Errorf("got %d, want 1", last)
	}
}

func TestValidateRejectsMismatchedExplicitDurations(t *testing.T) {
	d := Definition{
		ParameterID:       1,
		ParameterRate:     48000,
		Duration:          10,
		SubblockDurations: []uint64{5, 4},
		Type:              TypeReconGain,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for mismatched subblock duration sum")
	}
}

func TestWriteReadMixGainRoundTrip(t *testing.T) {
	d := Definition{
		ParameterID:   7,
		ParameterRate: 48000,
		Duration:      100,
		ConstantSubblockDuration: 100,
		Type: TypeMixGain,
		MixGain: MixGainTail{
			DefaultMixGain: 256,
			Animation:      animatedmixgain.Animation{Type: animatedmixgain.Step, StartPoint: 256},
		},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := d.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r := bits.NewReader(w.Bytes())
	got, err := Read(r, TypeMixGain)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ParameterID != d.ParameterID || got.MixGain.DefaultMixGain != d.MixGain.DefaultMixGain {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestWriteReadDemixingRoundTrip(t *testing.T) {
	d := Definition{
		ParameterID:              3,
		ParameterRate:            48000,
		ParamDefinitionMode:      true,
		Type:                     TypeDemixing,
		Demixing:                 DemixingTail{Mode: Demixing1n},
	}
	w := bits.NewWriter(bits.Minimal)
	if err := d.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r := bits.NewReader(w.Bytes())
	got, err := Read(r, TypeDemixing)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Demixing.Mode != Demixing1n {
		t.Errorf("got mode %d, want %d", got.Demixing.Mode, Demixing1n)
	}
}

func TestValidateRejectsZeroParameterRate(t *testing.T) {
	d := Definition{ParameterID: 1, Type: TypeReconGain}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for zero parameter_rate")
	}
}
