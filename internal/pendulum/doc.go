// Package pendulum implements the state and fixed-step update of a single
// double pendulum with equal point masses.
//
// The update rule is a first-order explicit scheme: accelerations are
// evaluated from the current state, angles advance with the pre-step
// velocities, then velocities advance with the fresh accelerations.
//
//	s := pendulum.New(math.Pi/6, 0)
//	p := pendulum.DefaultParams()
//	for i := 0; i < 1000; i++ {
//		s.Step(p)
//	}
//
// State values are plain structs; a grid of them can be stored contiguously
// and stepped in parallel as long as each goroutine owns its cells.
package pendulum
