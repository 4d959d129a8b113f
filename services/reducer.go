package services

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"airbnb-similarity/utils"
)

// Reduction is the output of a PCA pass.
type Reduction struct {
	Vectors           [][]float64
	Components        int
	ExplainedVariance float64 // fraction of total variance kept
}

// Reducer projects vectors onto their leading principal components, keeping
// the fewest components whose cumulative explained variance reaches the
// configured fraction.
type Reducer struct {
	varianceRetained float64
	logger           *utils.Logger
}

// NewReducer creates a Reducer keeping at least varianceRetained (0, 1] of
// the variance.
func NewReducer(varianceRetained float64, logger *utils.Logger) (*Reducer, error) {
	if !(varianceRetained > 0 && varianceRetained <= 1) {
		return nil, fmt.Errorf("reducer: variance fraction must be in (0, 1], got %v", varianceRetained)
	}
	return &Reducer{varianceRetained: varianceRetained, logger: logger}, nil
}

// Reduce runs PCA over vectors. The result is deterministic for identical
// input: component signs are fixed so the largest loading is positive.
func (r *Reducer) Reduce(vectors [][]float64) (*Reduction, error) {
	n := len(vectors)
	if n == 0 {
		return nil, errors.New("reducer: no vectors")
	}
	d := len(vectors[0])
	if d == 0 {
		return nil, errors.New("reducer: zero-dimensional vectors")
	}

	means := make([]float64, d)
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("reducer: vector %d has %d dims, want %d", i, len(v), d)
		}
		for j, x := range v {
			means[j] += x
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	x := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		for j, val := range v {
			x.Set(i, j, val-means[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("reducer: SVD did not converge")
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	k, kept := componentsFor(values, r.varianceRetained)

	components := mat.NewDense(d, k, nil)
	for c := 0; c < k; c++ {
		col := mat.Col(nil, c, &v)
		if largestIsNegative(col) {
			for i := range col {
				col[i] = -col[i]
			}
		}
		components.SetCol(c, col)
	}

	var proj mat.Dense
	proj.Mul(x, components)

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &proj)
	}

	r.logger.Info("[reducer] PCA kept %d of %d dimensions (%.1f%% of variance)", k, d, kept*100)
	return &Reduction{Vectors: out, Components: k, ExplainedVariance: kept}, nil
}

// componentsFor returns the smallest k whose leading singular values explain
// at least want of the total variance, and the fraction actually explained.
func componentsFor(singular []float64, want float64) (int, float64) {
	var total float64
	for _, s := range singular {
		total += s * s
	}
	if total == 0 {
		return 1, 1
	}
	var cum float64
	for i, s := range singular {
		cum += s * s
		if cum/total >= want-1e-12 {
			return i + 1, cum / total
		}
	}
	return len(singular), 1
}

func largestIsNegative(col []float64) bool {
	best, idx := -1.0, 0
	for i, x := range col {
		if a := math.Abs(x); a > best {
			best, idx = a, i
		}
	}
	return col[idx] < 0
}
