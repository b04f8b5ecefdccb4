package model

import "errors"

var (
	// ErrMalformedRecord marks an input record that is missing required fields or has bad indices
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoRuns is returned when a results directory holds no prediction files
	ErrNoRuns = errors.New("no prediction runs found")

	// ErrUnknownMode is returned for an unsupported aggregation or consumption mode
	ErrUnknownMode = errors.New("unknown mode")
)
