// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The fastoopsi program infers a non-negative spike-rate trace from a
// single-neuron fluorescence recording given as a CSV file of samples,
// one sample per line (or one comma-separated row). It is a thin adapter
// over package oopsi: it parses input, assembles a Config and Params from
// flags and an optional TOML settings file, calls oopsi.Infer, and writes
// the inferred rate back out as CSV.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/skn123/fast-oopsi/oopsi"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fastoopsi: ")

	in := flag.String("csv", "", "input csv file of fluorescence samples (required)")
	out := flag.String("o", "", "output csv file (default: stdout)")
	configPath := flag.String("config", "", "optional TOML settings file")

	dt := flag.Float64("dt", 1.0/30, "sample interval in seconds")
	tau := flag.Float64("tau", 1, "calcium decay time constant")
	lam := flag.Float64("lam", 1, "sparsity weight")
	sig := flag.Float64("sig", 0.1, "noise standard deviation")
	mu := flag.Float64("mu", 0, "baseline fluorescence offset")
	tol := flag.Float64("tol", 0, "outer-loop convergence tolerance (0: library default)")
	maxIter := flag.Int("maxiter", 0, "outer EM iterations (0: run the solver once, no re-estimation)")
	estimateTau := flag.Bool("estimate-tau", false, "re-estimate tau each outer iteration")
	estimateSig := flag.Bool("estimate-sig", false, "re-estimate sig each outer iteration")
	estimateMu := flag.Bool("estimate-mu", false, "accepted but has no effect: mu is held fixed")

	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "missing -csv input file")
		flag.Usage()
		os.Exit(2)
	}

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	fc, err := loadFileConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg, p := fc.merge(set, flagValues{
		dt: *dt, tau: *tau, lam: *lam, sig: *sig, mu: *mu, tol: *tol,
		maxIter:     *maxIter,
		estimateTau: *estimateTau, estimateSig: *estimateSig, estimateMu: *estimateMu,
	})

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal(err)
	}
	trace, err := readTrace(f)
	f.Close()
	if err != nil {
		log.Fatal(err)
	}

	res, err := oopsi.Infer(trace, p, cfg)
	var didNotConverge oopsi.ErrDidNotConverge
	var breakdown oopsi.NumericalBreakdown
	switch {
	case errors.As(err, &didNotConverge), errors.As(err, &breakdown):
		log.Printf("warning: %v (writing best result found)", err)
	case err != nil:
		log.Fatal(err)
	}

	w := os.Stdout
	if *out != "" {
		wf, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer wf.Close()
		w = wf
	}

	result := fitted{
		Tau: res.P.Tau, Lam: res.P.Lam, Sig: res.P.Sig, Mu: res.P.Mu,
		Iterations: res.Diagnostics.Iterations, Converged: res.Diagnostics.Converged,
	}
	if err := writeResult(w, res.N, result); err != nil {
		log.Fatal(err)
	}
}
