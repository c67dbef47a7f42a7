package model

import "github.com/rotisserie/eris"

// Error taxonomy for the pipeline. Normalization failures are isolated per
// record; metric failures are isolated per window/unit. Nothing is retried.
var (
	// ErrSchemaMismatch marks a record whose shape cannot be coerced to the
	// source-type schema. The record is skipped with a logged reason.
	ErrSchemaMismatch = eris.New("schema mismatch")

	// ErrInsufficientData marks a window/unit that lacks enough valid records
	// to compute a ratio. Surfaced as a missing MetricResult, never a zero.
	ErrInsufficientData = eris.New("insufficient data")

	// ErrImputationExhausted marks a fill policy with no prior value and no
	// default. Callers treat it as a schema mismatch for the record.
	ErrImputationExhausted = eris.New("imputation exhausted")
)
