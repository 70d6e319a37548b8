/*
NAME
  mixgain.go - MixGain animation records and interpolation (§4.3, §4.8):
  Step, Linear, and quadratic-Bezier interpolation of a mix-gain value
  across a subblock's sample range.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package animatedmixgain implements the animation record carried by a
// MixGain parameter's default value and by MixGain ParameterData subblocks,
// and the sample-position interpolation defined over it.
package animatedmixgain

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
)

// AnimationType selects the shape of a MixGain animation.
type AnimationType uint8

// Animation types per §4.8.
const (
	Step   AnimationType = 0
	Linear AnimationType = 1
	Bezier AnimationType = 2
)

// Animation is a MixGain animation record: a Step animation carries one
// point, Linear carries two, and Bezier carries three plus a control-point
// relative time.
type Animation struct {
	Type AnimationType

	StartPoint   int16 // Q7.8; valid for every type
	EndPoint     int16 // Q7.8; valid for Linear and Bezier
	ControlPoint int16 // Q7.8; valid for Bezier
	// ControlPointRelativeTime is Q0.8, the control point's position as a
	// fraction of the subblock's duration; valid for Bezier.
	ControlPointRelativeTime uint8
}

// Validate checks that Type is a recognized value.
func (a Animation) Validate() error {
	switch a.Type {
	case Step, Linear, Bezier:
		return nil
	default:
		return errors.Errorf("animatedmixgain: unknown animation_type %d", a.Type)
	}
}

// Write serializes a to w.
func (a Animation) Write(w *bits.Writer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := w.WriteUleb128(uint64(a.Type)); err != nil {
		return err
	}
	if err := w.WriteSigned16(a.StartPoint); err != nil {
		return err
	}
	switch a.Type {
	case Step:
		return nil
	case Linear:
		return w.WriteSigned16(a.EndPoint)
	case Bezier:
		if err := w.WriteSigned16(a.ControlPoint); err != nil {
			return err
		}
		if err := w.WriteSigned16(a.EndPoint); err != nil {
			return err
		}
		return w.WriteUnsignedLiteral(uint64(a.ControlPointRelativeTime), 8)
	default:
		return errors.Errorf("animatedmixgain: unknown animation_type %d", a.Type)
	}
}

// Read parses an Animation from r.
func Read(r *bits.Reader) (Animation, error) {
	t, _, err := r.ReadUleb128()
	if err != nil {
		return Animation{}, err
	}
	a := Animation{Type: AnimationType(t)}
	start, err := r.ReadSigned16()
	if err != nil {
		return Animation{}, err
	}
	a.StartPoint = start
	switch a.Type {
	case Step:
	case Linear:
		a.EndPoint, err = r.ReadSigned16()
		if err != nil {
			return Animation{}, err
		}
	case Bezier:
		a.ControlPoint, err = r.ReadSigned16()
		if err != nil {
			return Animation{}, err
		}
		a.EndPoint, err = r.ReadSigned16()
		if err != nil {
			return Animation{}, err
		}
		relTime, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return Animation{}, err
		}
		a.ControlPointRelativeTime = uint8(relTime)
	default:
		return Animation{}, errors.Errorf("animatedmixgain: unknown animation_type %d", a.Type)
	}
	return a, nil
}

func q78ToFloat(v int16) float64 { return float64(v) / 256.0 }

func floatToQ78(v float64) (int16, error) {
	scaled := math.Floor(v*256 + 0.5)
	if scaled < math.MinInt16 || scaled > math.MaxInt16 {
		return 0, errors.Errorf("animatedmixgain: %f is not representable in Q7.8", v)
	}
	return int16(scaled), nil
}

// Interpolate returns the mix-gain value at targetTime, given the
// subblock's [startTime, endTime] sample range (startTime <= targetTime <=
// endTime, all relative to the same origin).
func (a Animation) Interpolate(startTime, endTime, targetTime int64) (int16, error) {
	if targetTime < startTime || targetTime > endTime || startTime > endTime {
		return 0, errors.Errorf("animatedmixgain: target_time %d outside [%d, %d]", targetTime, startTime, endTime)
	}

	// Shift so the subblock starts at zero.
	n0 := int64(0)
	n2 := endTime - startTime
	n := targetTime - startTime

	switch a.Type {
	case Step:
		return a.StartPoint, nil
	case Linear:
		if n2 == 0 {
			return a.StartPoint, nil
		}
		alpha := float64(n) / float64(n2)
		p0 := q78ToFloat(a.StartPoint)
		p2 := q78ToFloat(a.EndPoint)
		return floatToQ78((1 - alpha) * p0 + alpha*p2)
	case Bezier:
		controlFrac := float64(a.ControlPointRelativeTime) / 256.0
		n1 := math.Floor(float64(n2)*controlFrac + 0.5)

		p0 := q78ToFloat(a.StartPoint)
		p1 := q78ToFloat(a.ControlPoint)
		p2 := q78ToFloat(a.EndPoint)

		alpha := float64(n0) - 2*n1 + float64(n2)
		beta := 2 * (n1 - float64(n0))
		gamma := float64(n0) - float64(n)

		var param float64
		if alpha == 0 {
			if beta == 0 {
				return a.StartPoint, nil
			}
			param = -gamma / beta
		} else {
			disc := beta*beta - 4*alpha*gamma
			if disc < 0 {
				return 0, errors.New("animatedmixgain: bezier quadratic has no real solution")
			}
			param = (-beta + math.Sqrt(disc)) / (2 * alpha)
		}
		value := (1-param)*(1-param)*p0 + 2*(1-param)*param*p1 + param*param*p2
		return floatToQ78(value)
	default:
		return 0, errors.Errorf("animatedmixgain: unknown animation_type %d", a.Type)
	}
}
