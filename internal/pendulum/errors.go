package pendulum

import "errors"

var (
	// ErrInvalidLength indicates a non-positive or non-finite arm length.
	ErrInvalidLength = errors.New("pendulum: arm length must be positive and finite")

	// ErrInvalidParams indicates a non-positive timestep or non-finite gravity.
	ErrInvalidParams = errors.New("pendulum: invalid integration parameters")
)
