package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by the query service when a listing or its
// cluster membership set does not exist.
var ErrNotFound = errors.New("listing not found")

// ErrInvalidWeights is wrapped by InvalidWeightsError.
var ErrInvalidWeights = errors.New("invalid fusion weights")

// SchemaError reports required columns missing from the source data.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "schema: missing required columns: " + strings.Join(e.Missing, ", ")
}

// InvalidWeightsError reports fusion weights that cannot be used.
type InvalidWeightsError struct {
	Weights []float64
	Reason  string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("fusion weights %v: %s", e.Weights, e.Reason)
}

func (e *InvalidWeightsError) Unwrap() error { return ErrInvalidWeights }

// ClusteringError reports a clustering run that could not produce labels.
type ClusteringError struct {
	Mode   string
	Reason string
}

func (e *ClusteringError) Error() string {
	return fmt.Sprintf("clustering (%s): %s", e.Mode, e.Reason)
}
