// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// estimateParams re-estimates Tau and Sig in closed form from a
// committed calcium/spike pair. Mu is carried through unchanged (fixed
// in this implementation) and Lam is left untouched (a hyperparameter
// of the sparsity prior, not re-estimated here). It returns the updated
// Params together with the negative log-likelihood evaluated at them,
// for the Driver's convergence check.
func estimateParams(f, c, n []float64, dt float64, p Params, cfg Config) (Params, float64) {
	out := p
	t := len(f)

	if cfg.EstimateTau {
		w := c[:t-1]
		y := make([]float64, t-1)
		for i := 0; i < t-1; i++ {
			y[i] = f[i+1] - n[i+1]
		}
		ww := floats.Dot(w, w)
		var aHat float64
		if ww > 0 {
			aHat = floats.Dot(w, y) / ww
		}
		aHat = clamp(aHat, 0, 1)
		if aHat >= 1-1e-12 {
			out.Tau = maxTau
		} else {
			out.Tau = dt / (1 - aHat)
		}
	}

	if cfg.EstimateSig {
		ss := 0.0
		for i := 0; i < t; i++ {
			r := f[i] - c[i] - p.Mu
			ss += r * r
		}
		sig := math.Sqrt(ss / float64(t))
		if sig < sigmaFloor {
			sig = sigmaFloor
		}
		out.Sig = sig
	}

	nll := negLogLik(f, c, n, out, cfg)
	return out, nll
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
