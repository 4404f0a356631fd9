// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"math"
	"math/rand"
)

// synthesize builds a fluorescence trace from a ground-truth spike train
// nTrue by AR(1) filtering with decay factor a = 1 - dt/tau, adding
// baseline mu and i.i.d. Gaussian noise of standard deviation sig. It
// returns the trace together with the exact calcium trace used to build
// it, so tests can compare against ground truth.
func synthesize(nTrue []float64, tau, dt, mu, sig float64, seed int64) (f, cTrue []float64) {
	t := len(nTrue)
	a := 1 - dt/tau
	cTrue = make([]float64, t)
	cTrue[0] = nTrue[0]
	for i := 1; i < t; i++ {
		cTrue[i] = a*cTrue[i-1] + nTrue[i]
	}
	rng := rand.New(rand.NewSource(seed))
	f = make([]float64, t)
	for i := range f {
		f[i] = cTrue[i] + mu + sig*rng.NormFloat64()
	}
	return f, cTrue
}

// spikeTrain returns a length-t non-negative vector with the given
// amplitude at each of the given indices and zero elsewhere.
func spikeTrain(t int, amplitude float64, indices ...int) []float64 {
	n := make([]float64, t)
	for _, idx := range indices {
		n[idx] = amplitude
	}
	return n
}

// topKIndices returns the indices of the k largest entries of v.
func topKIndices(v []float64, k int) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	// Simple selection sort over a copy; test traces are small.
	for i := 0; i < k && i < len(idx); i++ {
		best := i
		for j := i + 1; j < len(idx); j++ {
			if v[idx[j]] > v[idx[best]] {
				best = j
			}
		}
		idx[i], idx[best] = idx[best], idx[i]
	}
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

func within(idx, lo, hi int) bool { return idx >= lo && idx <= hi }

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func sumOf(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
