package multigrid

import "errors"

var (
	// ErrConfiguration marks a setup request that can never succeed as given.
	ErrConfiguration = errors.New("multigrid: invalid configuration")
	// ErrFactorization marks a singular or numerically unusable block met while factorizing.
	ErrFactorization = errors.New("multigrid: factorization failed")
	// ErrDimension marks a vector or operator whose size does not match the hierarchy.
	ErrDimension = errors.New("multigrid: dimension mismatch")
)
