package utils

const (
	NODETOL = 1.e-12
	// PIVOTTOL is the relative pivot size below which a factorization is treated as singular.
	PIVOTTOL = 1.e-14
)
