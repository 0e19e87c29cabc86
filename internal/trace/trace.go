// Package trace records the trajectory of a single double pendulum and
// stores or plots the samples.
package trace

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dpfractal/internal/pendulum"
)

const (
	DefaultTheta1 = math.Pi / 6
	DefaultTheta2 = 0.0
	DefaultSteps  = 100000
	DefaultEvery  = 100
)

type Sample struct {
	Step           int
	Time           float64
	Theta1, Theta2 float64
	Omega1, Omega2 float64
	Accel1, Accel2 float64
	Energy         float64
}

func sampleOf(step int, s *pendulum.State, p pendulum.Params) Sample {
	return Sample{
		Step:   step,
		Time:   float64(step) * p.Timestep,
		Theta1: s.Theta1, Theta2: s.Theta2,
		Omega1: s.Omega1, Omega2: s.Omega2,
		Accel1: s.Accel1, Accel2: s.Accel2,
		Energy: s.Energy(p.Gravity),
	}
}

// Record steps s the given number of times and keeps the initial state plus
// every every-th state after it. The final state is always kept.
func Record(ctx context.Context, s pendulum.State, p pendulum.Params, steps, every int) ([]Sample, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if steps < 0 || every <= 0 {
		return nil, fmt.Errorf("trace: invalid steps=%d every=%d", steps, every)
	}

	out := make([]Sample, 0, steps/every+2)
	out = append(out, sampleOf(0, &s, p))

	for i := 1; i <= steps; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return out, err
			}
		}
		s.Step(p)
		if i%every == 0 || i == steps {
			out = append(out, sampleOf(i, &s, p))
		}
	}

	return out, nil
}

// EnergyDrift is the relative change in energy between the first and last
// sample, or the absolute change when the initial energy is zero.
func EnergyDrift(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	e0, e1 := samples[0].Energy, samples[len(samples)-1].Energy
	if e0 == 0 {
		return math.Abs(e1)
	}
	return math.Abs(e1-e0) / math.Abs(e0)
}

// Angles splits samples into theta1 and theta2 series.
func Angles(samples []Sample) (theta1, theta2 []float64) {
	theta1 = make([]float64, len(samples))
	theta2 = make([]float64, len(samples))
	for i, s := range samples {
		theta1[i], theta2[i] = s.Theta1, s.Theta2
	}
	return theta1, theta2
}
