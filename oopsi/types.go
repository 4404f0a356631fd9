// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oopsi implements fast non-negative deconvolution of a
// single-neuron fluorescence trace into a spike-rate estimate, by an
// interior-point Newton solver (see InnerSolver) wrapped in an EM-style
// outer loop that re-estimates the generative model's parameters (see
// the Driver, exposed as Infer).
//
// The package is single-threaded, synchronous, and deterministic: Infer
// owns no shared state, spawns no goroutines, and returns bit-identical
// output for bit-identical input. Callers processing many neurons should
// invoke Infer once per neuron from their own worker pool; concurrency
// across traces is the caller's concern, not this package's.
package oopsi

// sigmaFloor is the minimum noise standard deviation ParamEstimator will
// report, avoiding division blowup in c = 1/(2*sig^2).
const sigmaFloor = 1e-6

// maxTau caps the re-estimated decay time constant when the one-step
// regression coefficient â saturates near 1 (near-unity decay implies an
// arbitrarily long, numerically meaningless time constant).
const maxTau = 1e6

// Params is the generative model's parameter record: the calcium decay
// time constant, the sparsity prior weight, the observation noise
// standard deviation, and the additive baseline.
type Params struct {
	Tau float64 // s; decay time constant, Tau > Dt
	Lam float64 // 1/s scale; sparsity prior weight, > 0
	Sig float64 // observation noise standard deviation, > 0
	Mu  float64 // additive baseline offset, any finite value
}

// Diagnostics holds values the Driver computes about a run, kept
// separate from Params because they describe the optimisation, not the
// generative model.
type Diagnostics struct {
	// NegLogLik is the negative log-likelihood at the returned Params.
	NegLogLik float64
	// Iterations is the outer-loop iteration at which the best result
	// was found (0 if only the initial barrier estimate was used).
	Iterations int
	// History holds the negative log-likelihood at every outer
	// iteration, History[0] being the pre-loop initial estimate.
	History []float64
	// Converged reports whether the outer loop's stopping tolerance was
	// reached (always true when parameter re-estimation is disabled,
	// since a single deterministic solver call has nothing further to
	// converge on).
	Converged bool
}

// Result is what Infer returns: the inferred spike-rate vector, the
// parameter record used to obtain it, and diagnostics about the run.
type Result struct {
	N           []float64
	P           Params
	Diagnostics Diagnostics
}

// Config is the exhaustive configuration surface of Infer. Dt has no
// default and must be set; WithDefaults fills in every other unset
// tolerance field with its documented default.
type Config struct {
	// Dt is the sample interval in seconds. Required, must be > 0.
	Dt float64

	// MaxIter is the maximum number of outer EM iterations. Zero
	// disables parameter re-estimation entirely and runs InnerSolver
	// exactly once.
	MaxIter int

	// Tol is the outer convergence threshold on successive negative
	// log-likelihood values. Default 1e-3.
	Tol float64

	// EtaFloor is the barrier continuation's lower bound on eta.
	// Default 1e-13.
	EtaFloor float64
	// EtaDecay is the multiplicative factor applied to eta after every
	// barrier stage. Default 0.1.
	EtaDecay float64

	// NewtonDirTol is the Newton-step-norm convergence threshold for the
	// inner loop. Default 5e-2.
	NewtonDirTol float64
	// NewtonStepFloor is the minimum backtracking step size before the
	// inner loop accepts the current iterate unchanged. Default 1e-3.
	NewtonStepFloor float64
	// ArmijoSlack is the increase tolerance used by backtracking: a
	// candidate step is accepted once its objective is below
	// L + ArmijoSlack. Default 1e-7.
	ArmijoSlack float64

	// EstimateTau enables re-estimation of the decay time constant each
	// outer iteration.
	EstimateTau bool
	// EstimateSig enables re-estimation of the noise standard deviation
	// each outer iteration.
	EstimateSig bool

	// EstimateMu is accepted but has no effect: Mu is held fixed at the
	// caller-supplied value throughout Infer.
	EstimateMu bool

	// UseDtScaling switches the sparsity term in the augmented objective
	// and negative log-likelihood from lam*sum(n) to lam*dt*sum(n).
	// False (the default) uses the lam*sum(n) convention.
	UseDtScaling bool
}

// WithDefaults returns a copy of c with every unset numeric field
// replaced by its documented default.
func (c Config) WithDefaults() Config {
	if c.Tol == 0 {
		c.Tol = 1e-3
	}
	if c.EtaFloor == 0 {
		c.EtaFloor = 1e-13
	}
	if c.EtaDecay == 0 {
		c.EtaDecay = 0.1
	}
	if c.NewtonDirTol == 0 {
		c.NewtonDirTol = 5e-2
	}
	if c.NewtonStepFloor == 0 {
		c.NewtonStepFloor = 1e-3
	}
	if c.ArmijoSlack == 0 {
		c.ArmijoSlack = 1e-7
	}
	return c
}
