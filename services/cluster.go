package services

import (
	"fmt"

	"airbnb-similarity/config"
	"airbnb-similarity/utils"
)

// NoiseLabel marks a listing that belongs to no density cluster.
const NoiseLabel = -1

// ClusterEngine assigns a density-based cluster label to every vector in one
// pass over the complete set.
//
// Labels are numbered 0..k-1 in order of first appearance in the input, so
// identical input on one platform gives identical labels. Across platforms
// only label-set equivalence is guaranteed: distance sums may differ in the
// last bit and move a point that sits exactly on a threshold.
type ClusterEngine struct {
	cfg    config.PipelineConfig
	logger *utils.Logger
}

// NewClusterEngine validates cfg's clustering parameters.
func NewClusterEngine(cfg config.PipelineConfig, logger *utils.Logger) (*ClusterEngine, error) {
	switch cfg.Mode {
	case config.ModeDBSCAN:
		if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
			return nil, fmt.Errorf("cluster engine: similarity threshold must be in (0, 1], got %v", cfg.SimilarityThreshold)
		}
	case config.ModeHDBSCAN:
		if cfg.MinClusterSize < 2 {
			return nil, fmt.Errorf("cluster engine: min cluster size must be at least 2, got %d", cfg.MinClusterSize)
		}
	default:
		return nil, fmt.Errorf("cluster engine: unknown mode %q", cfg.Mode)
	}
	if cfg.MinSamples < 1 {
		return nil, fmt.Errorf("cluster engine: min samples must be at least 1, got %d", cfg.MinSamples)
	}
	return &ClusterEngine{cfg: cfg, logger: logger}, nil
}

// Mode returns the configured algorithm name.
func (e *ClusterEngine) Mode() string { return e.cfg.Mode }

// Cluster returns exactly one label per input vector.
func (e *ClusterEngine) Cluster(vectors [][]float64) ([]int, error) {
	if len(vectors) == 0 {
		return nil, &ClusteringError{Mode: e.cfg.Mode, Reason: "empty input"}
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, &ClusteringError{Mode: e.cfg.Mode,
				Reason: fmt.Sprintf("vector %d has %d dims, want %d", i, len(v), dim)}
		}
		if !utils.AllFinite(v) {
			return nil, &ClusteringError{Mode: e.cfg.Mode,
				Reason: fmt.Sprintf("vector %d has non-finite components", i)}
		}
	}

	var labels []int
	switch e.cfg.Mode {
	case config.ModeDBSCAN:
		labels = dbscan(vectors, 1-e.cfg.SimilarityThreshold, e.cfg.MinSamples, cosineMetric(vectors))
	case config.ModeHDBSCAN:
		labels = hdbscan(vectors, e.cfg.MinClusterSize, e.cfg.MinSamples, euclideanMetric(vectors))
	}
	labels = relabelByFirstAppearance(labels)

	clusters, noise := countLabels(labels)
	e.logger.Info("[cluster] %s: %d vectors → %d clusters, %d noise", e.cfg.Mode, len(vectors), clusters, noise)
	return labels, nil
}

// metric returns the distance between points i and j.
type metric func(i, j int) float64

func cosineMetric(vectors [][]float64) metric {
	return func(i, j int) float64 {
		return utils.CosineDistance(vectors[i], vectors[j])
	}
}

func euclideanMetric(vectors [][]float64) metric {
	return func(i, j int) float64 {
		return utils.EuclideanDistance(vectors[i], vectors[j])
	}
}

func relabelByFirstAppearance(labels []int) []int {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		if l < 0 {
			out[i] = NoiseLabel
			continue
		}
		id, ok := mapping[l]
		if !ok {
			id = len(mapping)
			mapping[l] = id
		}
		out[i] = id
	}
	return out
}

func countLabels(labels []int) (clusters, noise int) {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l == NoiseLabel {
			noise++
			continue
		}
		seen[l] = struct{}{}
	}
	return len(seen), noise
}
