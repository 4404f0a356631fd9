// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"math"

	"github.com/skn123/fast-oopsi/linop"
)

// Infer is the library's single entry point: given a fluorescence trace,
// an initial parameter record, and a Config, it returns the most likely
// non-negative spike-rate vector together with refined parameters and
// diagnostics about the run.
//
// Infer never mutates f. On a NumericalBreakdown or ErrDidNotConverge,
// the returned Result still holds the best iterate seen — callers may
// treat those two error kinds as advisory and use the Result regardless.
func Infer(f []float64, p0 Params, cfg Config) (Result, error) {
	cfg = cfg.WithDefaults()

	if _, err := CoerceSlice(f); err != nil {
		return Result{}, err
	}
	if err := validateConfig(cfg); err != nil {
		return Result{}, err
	}
	if err := validateParams(p0, cfg.Dt); err != nil {
		return Result{}, err
	}

	t := len(f)
	a := 1 - cfg.Dt/p0.Tau

	// Initial objective: the barrier's own initialisation (eta=1,
	// constant n, AR(1)-filtered C) evaluated before any Newton or
	// parameter-estimation work.
	op := linop.New(t, a)
	n0 := make([]float64, t)
	for i := range n0 {
		n0[i] = 1 / p0.Lam
	}
	c0 := make([]float64, t)
	op.Invert(n0, c0)
	l0 := negLogLik(f, c0, n0, p0, cfg)

	history := []float64{l0}
	best := packageResult(n0, p0, Diagnostics{NegLogLik: l0})

	// Parameter re-estimation only makes sense across repeated outer
	// iterations; without it InnerSolver is deterministic, so a second
	// call with the same Params would reproduce the first exactly. A
	// MaxIter of zero additionally forces a single InnerSolver call
	// regardless of the estimate flags, per the Config.MaxIter contract.
	wantParamUpdate := (cfg.EstimateTau || cfg.EstimateSig) && cfg.MaxIter > 0
	iterLimit := cfg.MaxIter
	if iterLimit == 0 || !wantParamUpdate {
		iterLimit = 1
	}

	solver := newInnerSolver(t, a, cfg)
	p := p0
	prev := l0
	iterations := 0
	converged := false
	var breakdownErr error

	for i := 1; i <= iterLimit; i++ {
		n, err := solver.solve(f, p, cfg)
		if err != nil {
			breakdownErr = err
			break
		}
		iterations = i

		var nll float64
		if wantParamUpdate {
			p, nll = estimateParams(f, solver.C, n, cfg.Dt, p, cfg)
		} else {
			nll = negLogLik(f, solver.C, n, p, cfg)
		}
		history = append(history, nll)

		if nll < best.Diagnostics.NegLogLik {
			best = packageResult(n, p, Diagnostics{NegLogLik: nll, Iterations: i})
		}

		delta := math.Abs(nll - prev)
		prev = nll
		if wantParamUpdate && delta < cfg.Tol {
			converged = true
			break
		}
	}

	best.Diagnostics.History = history
	best.Diagnostics.Converged = converged || !wantParamUpdate

	if breakdownErr != nil {
		return best, NumericalBreakdown{Stage: "driver", Err: breakdownErr}
	}
	if wantParamUpdate && !converged && iterations >= cfg.MaxIter {
		return best, ErrDidNotConverge{
			Iterations: iterations,
			Delta:      math.Abs(history[len(history)-1] - history[len(history)-2]),
		}
	}
	return best, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return ShapeError{Reason: "Dt must be > 0"}
	}
	if cfg.MaxIter < 0 {
		return ParameterError{Field: "MaxIter", Reason: "must be >= 0"}
	}
	return nil
}

func validateParams(p Params, dt float64) error {
	if p.Tau <= dt {
		return ParameterError{Field: "Tau", Reason: "must be greater than Dt"}
	}
	if p.Lam <= 0 {
		return ParameterError{Field: "Lam", Reason: "must be > 0"}
	}
	if p.Sig <= 0 {
		return ParameterError{Field: "Sig", Reason: "must be > 0"}
	}
	if math.IsNaN(p.Mu) || math.IsInf(p.Mu, 0) {
		return ParameterError{Field: "Mu", Reason: "must be finite"}
	}
	return nil
}
