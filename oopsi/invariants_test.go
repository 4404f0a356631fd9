// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oopsi

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gonum.org/v1/gonum/stat"

	"github.com/skn123/fast-oopsi/linop"
)

func baseParams() Params {
	return Params{Tau: 0.5, Lam: 5, Sig: 0.05, Mu: 0}
}

func baseConfig() Config {
	return Config{Dt: 1.0 / 30, MaxIter: 0}
}

func TestInferShapePreservation(t *testing.T) {
	nTrue := spikeTrain(120, 1, 20, 60, 100)
	f, _ := synthesize(nTrue, 0.5, 1.0/30, 0, 0.05, 1)

	res, err := Infer(f, baseParams(), baseConfig())
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(res.N) != len(f) {
		t.Errorf("len(N) = %d, want %d", len(res.N), len(f))
	}
}

func TestInferNonNegativity(t *testing.T) {
	nTrue := spikeTrain(120, 1, 20, 60, 100)
	f, _ := synthesize(nTrue, 0.5, 1.0/30, 0, 0.05, 2)

	res, err := Infer(f, baseParams(), baseConfig())
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	for i, v := range res.N {
		if v < 0 {
			t.Errorf("N[%d] = %v, want >= 0", i, v)
		}
	}
}

func TestInferConsistencyWithCalciumOperator(t *testing.T) {
	nTrue := spikeTrain(150, 1, 30, 90)
	f, _ := synthesize(nTrue, 0.5, 1.0/30, 0, 0.05, 3)

	p := baseParams()
	cfg := baseConfig()
	res, err := Infer(f, p, cfg)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	a := 1 - cfg.Dt/p.Tau
	op := linop.New(len(f), a)
	c := make([]float64, len(f))
	op.Invert(res.N, c)
	recon := make([]float64, len(f))
	op.Forward(c, recon)
	nmax := maxOf(absVec(res.N))
	if nmax == 0 {
		nmax = 1
	}
	for i := range recon {
		if math.Abs(recon[i]-res.N[i]) > 1e-8*nmax {
			t.Errorf("reconstructed n[%d] = %v, want %v (within tol)", i, recon[i], res.N[i])
		}
	}
}

func absVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

func TestInferDeterminism(t *testing.T) {
	nTrue := spikeTrain(100, 1, 15, 55, 80)
	f, _ := synthesize(nTrue, 0.5, 1.0/30, 0, 0.05, 4)
	p := baseParams()
	cfg := Config{Dt: 1.0 / 30, MaxIter: 10, EstimateTau: true, EstimateSig: true}

	r1, err1 := Infer(f, p, cfg)
	r2, err2 := Infer(f, p, cfg)
	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("non-deterministic error: %v vs %v", err1, err2)
	}
	if diff := cmp.Diff(r1.N, r2.N); diff != "" {
		t.Errorf("Infer not deterministic, N differs (-first +second):\n%s", diff)
	}
	if r1.P != r2.P {
		t.Errorf("Infer not deterministic, P differs: %+v vs %+v", r1.P, r2.P)
	}
}

func TestParamEstimateBounds(t *testing.T) {
	nTrue := spikeTrain(150, 1, 30, 90, 91)
	f, _ := synthesize(nTrue, 0.5, 1.0/30, 0, 0.05, 5)
	p := baseParams()
	cfg := Config{Dt: 1.0 / 30, MaxIter: 1, EstimateTau: true, EstimateSig: true}

	res, err := Infer(f, p, cfg)
	if err != nil && !isDidNotConverge(err) {
		t.Fatalf("Infer: %v", err)
	}
	if res.P.Tau < cfg.Dt {
		t.Errorf("Tau = %v, want >= Dt = %v", res.P.Tau, cfg.Dt)
	}
	if res.P.Sig < sigmaFloor {
		t.Errorf("Sig = %v, want >= sigmaFloor = %v", res.P.Sig, sigmaFloor)
	}
}

func TestInferRejectsShortTrace(t *testing.T) {
	_, err := Infer([]float64{1, 2, 3}, baseParams(), baseConfig())
	var shapeErr ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Infer: got %v, want ShapeError", err)
	}
}

// TestKnownSpikeRecoveryCorrelation checks the second half of the
// known-spike-recovery property: at a noise level sig <= 0.05*max(C_true),
// the lag-0 cross-correlation between the inferred rate and the true spike
// train must exceed 0.9, not merely place its largest entries near the
// true support.
func TestKnownSpikeRecoveryCorrelation(t *testing.T) {
	nTrue := spikeTrain(200, 1, 40, 70, 71, 130)
	p := Params{Tau: 0.5, Lam: 5, Sig: 0.05, Mu: 0}
	cfg := Config{Dt: 1.0 / 30, MaxIter: 0}

	f, cTrue := synthesize(nTrue, p.Tau, cfg.Dt, p.Mu, p.Sig, 47)
	if p.Sig > 0.05*maxOf(cTrue) {
		t.Fatalf("test fixture violates sig <= 0.05*max(C_true): sig=%v, 0.05*max=%v", p.Sig, 0.05*maxOf(cTrue))
	}

	res, err := Infer(f, p, cfg)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	corr := stat.Correlation(res.N, nTrue, nil)
	if corr <= 0.9 {
		t.Errorf("lag-0 correlation(n_hat, n_true) = %v, want > 0.9", corr)
	}
}

func TestInferRejectsBadParams(t *testing.T) {
	cfg := baseConfig()
	cases := []Params{
		{Tau: cfg.Dt / 2, Lam: 1, Sig: 1, Mu: 0},
		{Tau: 1, Lam: -1, Sig: 1, Mu: 0},
		{Tau: 1, Lam: 1, Sig: 0, Mu: 0},
	}
	trace := make([]float64, 10)
	for i := range trace {
		trace[i] = float64(i)
	}
	for _, p := range cases {
		_, err := Infer(trace, p, cfg)
		var paramErr ParameterError
		if !errors.As(err, &paramErr) {
			t.Errorf("Infer(%+v): got %v, want ParameterError", p, err)
		}
	}
}
