// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// sparsityTerm returns lam*sum(n), or lam*dt*sum(n) when useDt is set.
func sparsityTerm(n []float64, lam, dt float64, useDt bool) float64 {
	sum := floats.Sum(n)
	if useDt {
		return lam * dt * sum
	}
	return lam * sum
}

// barrierObjective evaluates the augmented objective
//
//	L(C; eta) = c*||f - C - mu||^2 + lam*sum(n) - eta*sum(log n)
//
// driving InnerSolver's Newton iteration and line search.
func barrierObjective(f, c, n []float64, mu, cCoef, lam, eta, dt float64, useDt bool) float64 {
	ss := 0.0
	for i := range f {
		r := f[i] - c[i] - mu
		ss += r * r
	}
	logSum := 0.0
	for _, ni := range n {
		logSum += math.Log(ni)
	}
	return cCoef*ss + sparsityTerm(n, lam, dt, useDt) - eta*logSum
}

// negLogLik evaluates the negative log-likelihood
//
//	½T·log(2πσ²) + ||f-C-mu||²/(2σ²) - T·log(lam*dt) + lam*sum(n)
//
// at the given parameters, used by the Driver to track outer-loop
// convergence and by ParamEstimator to report the likelihood at its
// updated parameters.
func negLogLik(f, c, n []float64, p Params, cfg Config) float64 {
	t := float64(len(f))
	ss := 0.0
	for i := range f {
		r := f[i] - c[i] - p.Mu
		ss += r * r
	}
	sig2 := p.Sig * p.Sig
	nll := 0.5*t*math.Log(2*math.Pi*sig2) + ss/(2*sig2)
	nll -= t * math.Log(p.Lam*cfg.Dt)
	nll += sparsityTerm(n, p.Lam, cfg.Dt, cfg.UseDtScaling)
	return nll
}
