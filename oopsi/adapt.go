// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CoerceSlice validates a fluorescence trace already held as a plain
// []float64 — the common case — returning a ShapeError or
// ParameterError if it does not satisfy Infer's preconditions. It makes
// no copy and performs no mean-subtraction or rescaling: scale and
// offset are absorbed by Sig and Mu, not stripped out here.
func CoerceSlice(f []float64) ([]float64, error) {
	if len(f) < 4 {
		return nil, ShapeError{Reason: "trace must have at least 4 samples"}
	}
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ParameterError{Field: "F", Reason: "contains a non-finite sample"}
		}
	}
	return f, nil
}

// CoerceMatrix accepts a fluorescence trace held as either orientation
// of a one-dimensional gonum matrix — a 1×T row or a T×1 column — and
// returns it as a plain []float64 ready for Infer. Any other shape is
// rejected with a ShapeError.
func CoerceMatrix(m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	var t int
	switch {
	case r == 1:
		t = c
	case c == 1:
		t = r
	default:
		return nil, ShapeError{Reason: "trace must be a 1×T row or T×1 column matrix"}
	}
	f := make([]float64, t)
	for i := 0; i < t; i++ {
		if r == 1 {
			f[i] = m.At(0, i)
		} else {
			f[i] = m.At(i, 0)
		}
	}
	return CoerceSlice(f)
}

// packageResult copies n into a fresh Result, used by Infer to hand the
// caller an owned copy rather than the solver's internal workspace.
func packageResult(n []float64, p Params, d Diagnostics) Result {
	out := make([]float64, len(n))
	copy(out, n)
	return Result{N: out, P: p, Diagnostics: d}
}
