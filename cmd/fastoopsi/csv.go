// Copyright ©2026 The fast-oopsi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readTrace parses a fluorescence trace from r. The file may hold a single
// column (one sample per line) or a single row (comma-separated samples on
// one line); lines beginning with '#' are treated as comments and skipped.
func readTrace(r io.Reader) ([]float64, error) {
	rd := csv.NewReader(r)
	rd.Comment = '#'
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("fastoopsi: reading csv: %w", err)
	}

	var f []float64
	if len(records) == 1 && len(records[0]) > 1 {
		for _, field := range records[0] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("fastoopsi: parsing sample %q: %w", field, err)
			}
			f = append(f, v)
		}
		return f, nil
	}

	for _, row := range records {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("fastoopsi: parsing sample %q: %w", row[0], err)
		}
		f = append(f, v)
	}
	return f, nil
}

// writeResult writes one "index,n" row per sample followed by a trailing
// comment line reporting the fitted parameters.
func writeResult(w io.Writer, n []float64, p fitted) error {
	cw := csv.NewWriter(w)
	for i, v := range n {
		if err := cw.Write([]string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("fastoopsi: writing result: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("fastoopsi: writing result: %w", err)
	}
	_, err := fmt.Fprintf(w, "# tau=%g lam=%g sig=%g mu=%g iterations=%d converged=%t\n",
		p.Tau, p.Lam, p.Sig, p.Mu, p.Iterations, p.Converged)
	return err
}

type fitted struct {
	Tau, Lam, Sig, Mu float64
	Iterations        int
	Converged         bool
}
