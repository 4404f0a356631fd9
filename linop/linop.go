// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linop implements the sparse bidiagonal operator that links a
// latent calcium trace to the spike train that produced it, and the
// specialised assembly of the tridiagonal Hessian used by the inner
// Newton solver.
//
// The operator M is never materialised as a general sparse or dense
// matrix: it has unit diagonal and a single constant sub-diagonal entry
// -a, so every product, column sum, and Hessian diagonal it appears in
// can be written as an O(T) loop over the scalar a. Op stores exactly
// that scalar plus the trace length.
package linop

import "math"

// Op is the TxT bidiagonal operator with Op[i,i] = 1 and Op[i,i-1] = -a.
// The zero value is not usable; construct one with New.
type Op struct {
	a float64
	t int
}

// New returns the TxT operator with sub-diagonal decay factor a, where
// a = 1 - dt/tau lies in (0, 1).
func New(t int, a float64) Op {
	return Op{a: a, t: t}
}

// Len returns the order T of the operator.
func (o Op) Len() int { return o.t }

// Decay returns the current sub-diagonal scalar a.
func (o Op) Decay() float64 { return o.a }

// SetDecay replaces the sub-diagonal scalar in O(1).
func (o *Op) SetDecay(a float64) { o.a = a }

// Forward computes n = M*c, the spike train implied by calcium trace c.
// n and c may not overlap.
func (o Op) Forward(c, n []float64) {
	t := o.t
	n[0] = c[0]
	for i := 1; i < t; i++ {
		n[i] = c[i] - o.a*c[i-1]
	}
}

// Transpose computes out = M'*v. out and v may not overlap.
func (o Op) Transpose(v, out []float64) {
	t := o.t
	for i := 0; i < t-1; i++ {
		out[i] = v[i] - o.a*v[i+1]
	}
	out[t-1] = v[t-1]
}

// Invert computes c, the unique solution of M*c = n, via the AR(1)
// recurrence c[i] = a*c[i-1] + n[i] with c[-1] = 0. c and n may not
// overlap.
func (o Op) Invert(n, c []float64) {
	t := o.t
	c[0] = n[0]
	for i := 1; i < t; i++ {
		c[i] = o.a*c[i-1] + n[i]
	}
}

// ColumnSums writes the column sums of M into out: (1-a) for every
// column but the last, which has no row below it and so sums to 1.
func (o Op) ColumnSums(out []float64) {
	t := o.t
	for i := 0; i < t-1; i++ {
		out[i] = 1 - o.a
	}
	out[t-1] = 1
}

// AssembleHessian writes the two diagonals of the symmetric tridiagonal
// Hessian
//
//	H = 2*c*I + 2*eta*M' * diag(1/n^2) * M
//
// into d (length T, main diagonal) and e (length T-1, off-diagonal).
// n must be strictly positive in every entry; AssembleHessian does not
// itself check this, since InnerSolver's barrier keeps n feasible by
// construction.
func AssembleHessian(c, eta float64, n []float64, op Op, d, e []float64) {
	t := op.Len()
	a2 := op.Decay() * op.Decay()
	for i := 0; i < t; i++ {
		invN := 1 / (n[i] * n[i])
		v := 2*c + 2*eta*invN
		if i < t-1 {
			invNext := 1 / (n[i+1] * n[i+1])
			v += 2 * eta * a2 * invNext
			e[i] = -2 * eta * op.Decay() * invNext
		}
		d[i] = v
	}
}

// Finite reports whether every entry of v is finite. It is used by the
// solver to detect numerical breakdown without importing a general
// validation package.
func Finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
