// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trisolve implements a dedicated solver for symmetric
// positive-definite tridiagonal linear systems, used by the inner Newton
// solver to compute each search direction in O(T) without the fill-in or
// general-factorisation overhead of a dense or sparse LU/Cholesky.
package trisolve

import "errors"

// ErrNotPositiveDefinite is returned by Solve when a pivot encountered
// during elimination is not strictly positive, meaning H is not
// symmetric positive-definite.
var ErrNotPositiveDefinite = errors.New("trisolve: matrix is not positive definite")

// Solve solves H*x = rhs for a symmetric positive-definite tridiagonal H
// of order T, given its main diagonal d (length T) and off-diagonal e
// (length T-1, with e[i] the entry shared by rows/columns i and i+1).
// The solution is written into x (length T).
//
// cp and dp are caller-owned scratch buffers of length T, reused across
// calls by InnerSolver to avoid T-sized allocation inside the Newton
// loop. Solve does not modify d or e; x may alias rhs, in which case rhs
// is overwritten by the solution, and otherwise rhs is left unchanged.
//
// Solve uses Thomas-style forward elimination with partial diagonal
// scaling followed by back substitution: two length-T passes, no
// fill-in beyond cp and dp.
func Solve(d, e, rhs []float64, x, cp, dp []float64) error {
	t := len(d)
	if t == 0 {
		return nil
	}
	if d[0] <= 0 {
		return ErrNotPositiveDefinite
	}
	cp[0] = 0
	if t > 1 {
		cp[0] = e[0] / d[0]
	}
	dp[0] = rhs[0] / d[0]

	for i := 1; i < t; i++ {
		m := d[i] - e[i-1]*cp[i-1]
		if m <= 0 {
			return ErrNotPositiveDefinite
		}
		if i < t-1 {
			cp[i] = e[i] / m
		}
		dp[i] = (rhs[i] - e[i-1]*dp[i-1]) / m
	}

	x[t-1] = dp[t-1]
	for i := t - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}
	return nil
}
