package animatedmixgain

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
)

func TestInterpolateStepReturnsStartPoint(t *testing.T) {
	a := Animation{Type: Step, StartPoint: 512}
	got, err := a.Interpolate(0, 100, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 512 {
		t.Errorf("got %d, want 512", got)
	}
}

func TestInterpolateLinearMidpointIsMean(t *testing.T) {
	a := Animation{Type: Linear, StartPoint: 0, EndPoint: 256}
	got, err := a.Interpolate(0, 100, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 128 {
		t.Errorf("got %d, want 128", got)
	}
}

func TestInterpolateBezierDegenerateRangeReturnsStartPoint(t *testing.T) {
	a := Animation{
		Type:                     Bezier,
		StartPoint:               100,
		ControlPoint:             200,
		EndPoint:                 300,
		ControlPointRelativeTime: 128,
	}
	got, err := a.Interpolate(10, 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestInterpolateBezierEndpoints(t *testing.T) {
	a := Animation{
		Type:                     Bezier,
		StartPoint:               100,
		ControlPoint:             200,
		EndPoint:                 300,
		ControlPointRelativeTime: 128,
	}
	start, err := a.Interpolate(0, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 100 {
		t.Errorf("start got %d, want 100", start)
	}
	end, err := a.Interpolate(0, 100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end != 300 {
		t.Errorf("end got %d, want 300", end)
	}
}

func TestInterpolateTargetOutsideRangeFails(t *testing.T) {
	a := Animation{Type: Step, StartPoint: 0}
	if _, err := a.Interpolate(0, 100, 200); err == nil {
		t.Fatal("expected error for target_time outside range")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, a := range []Animation{
		{Type: Step, StartPoint: -5},
		{Type: Linear, StartPoint: 10, EndPoint: -10},
		{Type: Bezier, StartPoint: 1, ControlPoint: 2, EndPoint: 3, ControlPointRelativeTime: 64},
	} {
		w := bits.NewWriter(bits.Minimal)
		if err := a.Write(w); err != nil {
			t.Fatalf("Write: %v", err)
		}
		r := bits.NewReader(w.Bytes())
		got, err := Read(r)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got != a {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, a)
		}
	}
}
