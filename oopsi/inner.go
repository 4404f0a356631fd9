// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"errors"
	"math"

	"github.com/skn123/fast-oopsi/linop"
	"github.com/skn123/fast-oopsi/trisolve"

	"gonum.org/v1/gonum/floats"
)

// errNonFinite marks a non-finite value (NaN or Inf) produced mid-solve;
// it is always wrapped in a NumericalBreakdown before reaching a caller.
var errNonFinite = errors.New("non-finite value produced")

// innerSolver holds the preallocated workspace for one InnerSolver
// invocation. All length-T (or length-T-1) buffers are allocated once in
// newInnerSolver and reused across every Newton and barrier iteration, so
// that the hot loop performs no allocation — buffer reuse is
// performance-critical since inner iterations can number in the
// hundreds.
type innerSolver struct {
	t   int
	op  linop.Op
	cfg Config

	C, n     []float64 // current committed iterate
	Cnew, nn []float64 // candidate iterate under line search
	D, g, d  []float64 // residual, gradient, Newton direction
	hd, he   []float64 // Hessian main and off diagonal (he has length t-1)
	cp, dp   []float64 // trisolve scratch
	md       []float64 // M*d, reused for the feasibility step cap
	colsum   []float64 // column sums of M, constant for a fixed decay a
}

func newInnerSolver(t int, a float64, cfg Config) *innerSolver {
	s := &innerSolver{
		t:      t,
		op:     linop.New(t, a),
		cfg:    cfg,
		C:      make([]float64, t),
		n:      make([]float64, t),
		Cnew:   make([]float64, t),
		nn:     make([]float64, t),
		D:      make([]float64, t),
		g:      make([]float64, t),
		d:      make([]float64, t),
		hd:     make([]float64, t),
		he:     make([]float64, t-1),
		cp:     make([]float64, t),
		dp:     make([]float64, t),
		md:     make([]float64, t),
		colsum: make([]float64, t),
	}
	s.op.ColumnSums(s.colsum)
	return s
}

// solve runs the barrier-continuation / Newton inner loop for fixed
// parameters p, starting from the standard interior initialisation
// (eta=1, n constant, C the AR(1) filtering of that constant n). It
// returns the committed spike-rate vector n; solver.C holds the
// corresponding calcium trace on return.
//
// A non-nil error means the tridiagonal solve lost positive-definiteness
// or a produced value became non-finite; solver.C and solver.n still
// hold the last feasible committed iterate.
func (s *innerSolver) solve(f []float64, p Params, cfg Config) ([]float64, error) {
	a := 1 - cfg.Dt/p.Tau
	s.op.SetDecay(a)
	s.op.ColumnSums(s.colsum)

	c := 1 / (2 * p.Sig * p.Sig)
	eta := 1.0

	for i := range s.n {
		s.n[i] = eta / p.Lam
	}
	s.op.Invert(s.n, s.C)
	L := barrierObjective(f, s.C, s.n, p.Mu, c, p.Lam, eta, cfg.Dt, cfg.UseDtScaling)

	for {
		var err error
		L, err = s.newtonStage(f, p.Mu, c, p.Lam, eta, cfg, L)
		if err != nil {
			return nil, err
		}
		eta *= cfg.EtaDecay
		if eta < cfg.EtaFloor {
			break
		}
	}

	out := make([]float64, s.t)
	copy(out, s.n)
	return out, nil
}

// maxNewtonIters bounds the Newton loop for a single barrier stage as a
// safety valve against non-terminating oscillation; the documented
// stopping rules (newton_dir_tol, newton_step_floor) are expected to
// trigger well before this is reached for any well-posed problem.
const maxNewtonIters = 500

// newtonStage runs the Newton loop for a fixed barrier weight eta,
// mutating s.C/s.n in place as iterates are accepted, and returns the
// objective value at the final accepted iterate.
func (s *innerSolver) newtonStage(f []float64, mu, c, lam, eta float64, cfg Config, L float64) (float64, error) {
	// Weight of the sparsity term's gradient, matching sparsityTerm.
	lamGrad := lam
	if cfg.UseDtScaling {
		lamGrad = lam * cfg.Dt
	}
	for iter := 0; iter < maxNewtonIters; iter++ {
		for i := range f {
			s.D[i] = f[i] - s.C[i] - mu
		}

		for i := range s.n {
			s.cp[i] = 1 / s.n[i] // reuse cp as the 1/n workspace before trisolve needs it
		}
		s.op.Transpose(s.cp, s.g)
		for i := range s.g {
			s.g[i] = -2*c*s.D[i] + lamGrad*s.colsum[i] - eta*s.g[i]
		}
		if !linop.Finite(s.g) {
			return 0, NumericalBreakdown{Stage: "inner solver gradient", Err: errNonFinite}
		}

		linop.AssembleHessian(c, eta, s.n, s.op, s.hd, s.he)

		for i := range s.d {
			s.d[i] = -s.g[i]
		}
		if err := trisolve.Solve(s.hd, s.he, s.d, s.d, s.cp, s.dp); err != nil {
			return 0, NumericalBreakdown{Stage: "inner solver Hessian solve", Err: err}
		}
		if !linop.Finite(s.d) {
			return 0, NumericalBreakdown{Stage: "inner solver direction", Err: errNonFinite}
		}

		dnorm := floats.Norm(s.d, 2)
		if dnorm <= cfg.NewtonDirTol {
			return L, nil
		}

		s0 := s.stepCap()
		newL, accepted, step := s.backtrack(f, mu, c, lam, eta, cfg, L, s0)
		if !linop.Finite(s.Cnew) || math.IsNaN(newL) || math.IsInf(newL, 0) {
			return 0, NumericalBreakdown{Stage: "inner solver line search", Err: errNonFinite}
		}
		if accepted {
			copy(s.C, s.Cnew)
			copy(s.n, s.nn)
			L = newL
		}
		if step <= cfg.NewtonStepFloor {
			// Step cap collapsed without objective decrease: accept the
			// current iterate unchanged and move on to the next eta.
			return L, nil
		}
	}
	return L, nil
}

// stepCap computes the largest s in (0, 1] that keeps n + s*(M*d) > 0.
func (s *innerSolver) stepCap() float64 {
	s.op.Forward(s.d, s.md)
	s0 := 1.0
	found := false
	for i, mdi := range s.md {
		if mdi >= 0 {
			continue
		}
		h := -s.n[i] / mdi
		if !found || h < s0 {
			s0 = h
			found = true
		}
	}
	if found {
		s0 = 0.99 * s0
		if s0 > 1 {
			s0 = 1
		}
	} else {
		s0 = 1
	}
	return s0
}

// backtrack halves the step from s0 until the candidate objective is
// below L + ArmijoSlack or the step falls below NewtonStepFloor.
// s.Cnew and s.nn hold the last candidate evaluated; accepted reports
// whether that candidate satisfies the increase tolerance.
func (s *innerSolver) backtrack(f []float64, mu, c, lam, eta float64, cfg Config, L, s0 float64) (newL float64, accepted bool, step float64) {
	step = s0
	for {
		for i := range s.Cnew {
			s.Cnew[i] = s.C[i] + step*s.d[i]
		}
		s.op.Forward(s.Cnew, s.nn)
		newL = barrierObjective(f, s.Cnew, s.nn, mu, c, lam, eta, cfg.Dt, cfg.UseDtScaling)
		if newL < L+cfg.ArmijoSlack {
			return newL, true, step
		}
		step /= 2
		if step < cfg.NewtonStepFloor {
			return newL, false, step
		}
	}
}
