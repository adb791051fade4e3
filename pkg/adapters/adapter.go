package adapters

import (
	"context"
	"fmt"

	"github.com/HatiCode/trafficcast/pkg/dataset"
)

// LoadReport describes what a Collect call read. Rows that could not be
// dated or labelled are kept and only counted here.
type LoadReport struct {
	Rows           int
	BadTimestamps  int
	MissingTargets int
	// Errors keeps the first few per-row parse errors for logging.
	Errors []*ParseError
}

// maxReportedErrors bounds LoadReport.Errors.
const maxReportedErrors = 10

func (r *LoadReport) record(err *ParseError) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, err)
	}
}

// ParseError is a single cell that could not be parsed. It is handled where
// it happens by nulling the field and is never returned from Collect.
type ParseError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Adapter is the interface every record source implements.
//
// Collect reads the whole source into memory and returns it as a table.
// A malformed cell must never abort the read; only structural problems
// (unreadable source, missing columns) are errors.
type Adapter interface {
	Collect(ctx context.Context) (dataset.Table, LoadReport, error)

	// Name returns a short identifier for the adapter, e.g. "csv".
	Name() string
}
