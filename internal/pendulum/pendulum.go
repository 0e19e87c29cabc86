package pendulum

import (
	"fmt"
	"math"
)

const (
	DefaultLength   = 1.0
	DefaultTimestep = 0.001
	DefaultGravity  = 1.0
)

// Params holds the integration constants shared by every step.
type Params struct {
	Timestep float64
	Gravity  float64
}

func DefaultParams() Params {
	return Params{Timestep: DefaultTimestep, Gravity: DefaultGravity}
}

func (p Params) Validate() error {
	if !(p.Timestep > 0) || math.IsInf(p.Timestep, 0) {
		return fmt.Errorf("%w: timestep %v", ErrInvalidParams, p.Timestep)
	}
	if math.IsNaN(p.Gravity) || math.IsInf(p.Gravity, 0) {
		return fmt.Errorf("%w: gravity %v", ErrInvalidParams, p.Gravity)
	}
	return nil
}

// State is one double pendulum. Angles are measured from the downward
// vertical and are never wrapped. Accel1 and Accel2 hold the accelerations
// evaluated at the start of the most recent Step.
type State struct {
	Theta1, Theta2   float64
	Length1, Length2 float64
	Omega1, Omega2   float64
	Accel1, Accel2   float64
}

func New(theta1, theta2 float64) State {
	return NewWithLengths(theta1, theta2, DefaultLength, DefaultLength)
}

func NewWithLengths(theta1, theta2, l1, l2 float64) State {
	return State{Theta1: theta1, Theta2: theta2, Length1: l1, Length2: l2}
}

func (s *State) Validate() error {
	for _, l := range []float64{s.Length1, s.Length2} {
		if !(l > 0) || math.IsInf(l, 0) {
			return fmt.Errorf("%w: got %v", ErrInvalidLength, l)
		}
	}
	return nil
}

func (s *State) Position1() (x, y float64) {
	return s.Length1 * math.Sin(s.Theta1), -s.Length1 * math.Cos(s.Theta1)
}

func (s *State) Position2() (x, y float64) {
	x = s.Length1*math.Sin(s.Theta1) + s.Length2*math.Sin(s.Theta2)
	y = -(s.Length1*math.Cos(s.Theta1) + s.Length2*math.Cos(s.Theta2))
	return x, y
}

// denominator is strictly positive for a positive Length1 since
// 3 - cos(x) lies in [2, 4].
func (s *State) denominator() float64 {
	return s.Length1 * (3 - math.Cos(2*(s.Theta1-s.Theta2)))
}

func (s *State) AngularAccel1(g float64) float64 {
	t1, t2, w1, w2 := s.Theta1, s.Theta2, s.Omega1, s.Omega2
	delta := t1 - t2

	num := -3*g*math.Sin(t1) -
		g*math.Sin(t1-2*t2) -
		2*math.Sin(delta)*(w2*w2*s.Length2+w1*w1*s.Length1*math.Cos(delta))

	return num / s.denominator()
}

func (s *State) AngularAccel2(g float64) float64 {
	t1, t2, w1, w2 := s.Theta1, s.Theta2, s.Omega1, s.Omega2
	delta := t1 - t2

	num := 2 * math.Sin(delta) *
		(2*w1*w1*s.Length1 + 2*g*math.Cos(t1) + w2*w2*s.Length2*math.Cos(delta))

	return num / s.denominator()
}

// Step advances the pendulum by one timestep. Angles move with the velocities
// from before the step and velocities move with the accelerations computed at
// the start of it; changing this order changes the trajectory.
func (s *State) Step(p Params) {
	s.Accel1 = s.AngularAccel1(p.Gravity)
	s.Accel2 = s.AngularAccel2(p.Gravity)

	dt := p.Timestep
	s.Theta1 += dt * s.Omega1
	s.Theta2 += dt * s.Omega2
	s.Omega1 += dt * s.Accel1
	s.Omega2 += dt * s.Accel2
}

// Energy is the total mechanical energy for two unit point masses.
func (s *State) Energy(g float64) float64 {
	l1, l2 := s.Length1, s.Length2
	w1, w2 := s.Omega1, s.Omega2

	v1sq := l1 * l1 * w1 * w1
	v2sq := v1sq + l2*l2*w2*w2 + 2*l1*l2*w1*w2*math.Cos(s.Theta1-s.Theta2)

	_, y1 := s.Position1()
	_, y2 := s.Position2()

	return 0.5*(v1sq+v2sq) + g*(y1+y2)
}

// Finite reports whether angles and velocities are free of NaN and Inf.
func (s *State) Finite() bool {
	for _, v := range [...]float64{s.Theta1, s.Theta2, s.Omega1, s.Omega2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Color maps Theta1 to red and Theta2 to blue over [-pi, pi]; green is fixed
// at 128. Angles outside the range saturate at 0 or 255.
func (s *State) Color() (r, g, b uint8) {
	return channel(s.Theta1), 128, channel(s.Theta2)
}

func channel(theta float64) uint8 {
	v := 255 * (theta + math.Pi) / (2 * math.Pi)
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func (s State) String() string {
	return fmt.Sprintf("theta1=%g theta2=%g omega1=%g omega2=%g accel1=%g accel2=%g",
		s.Theta1, s.Theta2, s.Omega1, s.Omega2, s.Accel1, s.Accel2)
}
