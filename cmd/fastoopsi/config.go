// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/skn123/fast-oopsi/oopsi"
)

// fileConfig mirrors the subset of oopsi.Config and oopsi.Params a user may
// want to pin across many recordings in a settings file, rather than
// repeating the same dozen flags on every invocation.
type fileConfig struct {
	Dt              float64
	MaxIter         int
	Tol             float64
	EtaFloor        float64
	EtaDecay        float64
	ArmijoSlack     float64
	EstimateTau     bool
	EstimateSig     bool
	EstimateMu      bool
	UseDtScaling    bool

	Tau float64
	Lam float64
	Sig float64
	Mu  float64
}

// loadFileConfig reads a TOML settings file. Zero-valued fields are left for
// the caller to default; an empty path is not an error, it simply yields
// the zero value so flags alone can drive the run. A non-empty path that
// does not exist is an error.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fc, fmt.Errorf("fastoopsi: config file %q does not exist", path)
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fc, fmt.Errorf("fastoopsi: decoding %q: %w", path, err)
	}
	return fc, nil
}

// merge layers flag-supplied overrides on top of a file-loaded config. A
// flag's value is used when the caller reports the flag was explicitly set
// (set[name] is true) or, for numeric fields, when the file leaves the field
// at zero; otherwise the file's value wins, so an unset flag never clobbers
// a non-zero setting from the file.
func (fc fileConfig) merge(set map[string]bool, flags flagValues) (oopsi.Config, oopsi.Params) {
	cfg := oopsi.Config{
		Dt:           pick(set["dt"], flags.dt, fc.Dt),
		MaxIter:      pickInt(set["maxiter"], flags.maxIter, fc.MaxIter),
		Tol:          pick(set["tol"], flags.tol, fc.Tol),
		EtaFloor:     fc.EtaFloor,
		EtaDecay:     fc.EtaDecay,
		ArmijoSlack:  fc.ArmijoSlack,
		EstimateTau:  pickBool(set["estimate-tau"], flags.estimateTau, fc.EstimateTau),
		EstimateSig:  pickBool(set["estimate-sig"], flags.estimateSig, fc.EstimateSig),
		EstimateMu:   pickBool(set["estimate-mu"], flags.estimateMu, fc.EstimateMu),
		UseDtScaling: fc.UseDtScaling,
	}
	p := oopsi.Params{
		Tau: pick(set["tau"], flags.tau, fc.Tau),
		Lam: pick(set["lam"], flags.lam, fc.Lam),
		Sig: pick(set["sig"], flags.sig, fc.Sig),
		Mu:  pick(set["mu"], flags.mu, fc.Mu),
	}
	return cfg, p
}

type flagValues struct {
	dt, tau, lam, sig, mu, tol float64
	maxIter                    int
	estimateTau, estimateSig, estimateMu bool
}

func pick(explicit bool, flagVal, fileVal float64) float64 {
	if explicit || fileVal == 0 {
		return flagVal
	}
	return fileVal
}

func pickInt(explicit bool, flagVal, fileVal int) int {
	if explicit || fileVal == 0 {
		return flagVal
	}
	return fileVal
}

func pickBool(explicit bool, flagVal, fileVal bool) bool {
	if explicit {
		return flagVal
	}
	return fileVal
}
