package utils

import "fmt"

type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

// Inverse returns the inverse of a permutation: r[I[i]] = i.
func (I Index) Inverse() (r Index) {
	r = make(Index, len(I))
	for i, val := range I {
		r[val] = i
	}
	return
}

// IsPermutation reports whether I is a permutation of 0..len(I)-1.
func (I Index) IsPermutation() bool {
	seen := make([]bool, len(I))
	for _, val := range I {
		if val < 0 || val >= len(I) || seen[val] {
			return false
		}
		seen[val] = true
	}
	return true
}

// Gather sets dst[i] = src[I[i]].
func (I Index) Gather(dst, src []float64) {
	if len(dst) != len(I) {
		panic(fmt.Errorf("Gather: len(dst) = %d, len(index) = %d", len(dst), len(I)))
	}
	for i, val := range I {
		dst[i] = src[val]
	}
}

// Scatter sets dst[I[i]] = src[i].
func (I Index) Scatter(dst, src []float64) {
	if len(src) != len(I) {
		panic(fmt.Errorf("Scatter: len(src) = %d, len(index) = %d", len(src), len(I)))
	}
	for i, val := range I {
		dst[val] = src[i]
	}
}
