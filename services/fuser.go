package services

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"airbnb-similarity/config"
	"airbnb-similarity/utils"
)

// Fuser combines a listing's per-view embeddings into one unit vector by a
// fixed weighted average.
type Fuser struct {
	weights []float64
	total   float64
}

// NewFuser validates w. All-zero, negative or non-finite weights are rejected
// before any vector math happens.
func NewFuser(w config.FusionWeights) (*Fuser, error) {
	ws := w.Slice()
	for _, x := range ws {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return nil, &InvalidWeightsError{Weights: ws, Reason: "weights must be finite and non-negative"}
		}
	}
	total := floats.Sum(ws)
	if total == 0 {
		return nil, &InvalidWeightsError{Weights: ws, Reason: "weights sum to zero"}
	}
	return &Fuser{weights: ws, total: total}, nil
}

// Fuse returns the normalised weighted mean of outline, overview and
// high-level vectors, in that order.
func (f *Fuser) Fuse(views ...[]float64) ([]float64, error) {
	if len(views) != len(f.weights) {
		return nil, fmt.Errorf("fuse: got %d views, want %d", len(views), len(f.weights))
	}
	dim := len(views[0])
	if dim == 0 {
		return nil, errors.New("fuse: empty vector")
	}
	out := make([]float64, dim)
	for i, v := range views {
		if len(v) != dim {
			return nil, fmt.Errorf("fuse: view %d has %d dims, want %d", i, len(v), dim)
		}
		floats.AddScaled(out, f.weights[i], v)
	}
	floats.Scale(1/f.total, out)

	unit, ok := utils.NormalizeL2(out)
	if !ok {
		return nil, errors.New("fuse: weighted views cancel out to a zero vector")
	}
	return unit, nil
}

// FuseAll fuses column-wise: row i of the result combines row i of each input.
func (f *Fuser) FuseAll(outline, overview, highLevel [][]float64) ([][]float64, error) {
	if len(outline) != len(overview) || len(outline) != len(highLevel) {
		return nil, fmt.Errorf("fuse: view columns differ in length (%d, %d, %d)",
			len(outline), len(overview), len(highLevel))
	}
	out := make([][]float64, len(outline))
	for i := range outline {
		v, err := f.Fuse(outline[i], overview[i], highLevel[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
