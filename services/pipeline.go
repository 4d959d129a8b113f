package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"airbnb-similarity/config"
	"airbnb-similarity/embedding"
	"airbnb-similarity/models"
	"airbnb-similarity/storage"
	"airbnb-similarity/utils"
)

// Pipeline runs one similarity pass over every stored listing and writes the
// cluster assignments back.
type Pipeline struct {
	store      storage.Store
	generator  *embedding.Generator
	narratives *NarrativeBuilder
	fuser      *Fuser
	reducer    *Reducer
	engine     *ClusterEngine
	insights   *InsightService
	cfg        config.PipelineConfig
	logger     *utils.Logger
}

// RunResult is what a successful Run persisted.
type RunResult struct {
	RunID    string
	Listings []*models.Listing
	Labels   []int
	Report   *models.ClusterReport
}

// NewPipeline validates cfg and wires the stages.
func NewPipeline(store storage.Store, generator *embedding.Generator, cfg config.PipelineConfig, logger *utils.Logger) (*Pipeline, error) {
	fuser, err := NewFuser(cfg.FusionWeights)
	if err != nil {
		return nil, err
	}
	engine, err := NewClusterEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		store:      store,
		generator:  generator,
		narratives: NewNarrativeBuilder(),
		fuser:      fuser,
		engine:     engine,
		insights:   NewInsightService(logger),
		cfg:        cfg,
		logger:     logger,
	}
	switch {
	case cfg.UseReduction && cfg.Mode == config.ModeHDBSCAN:
		if p.reducer, err = NewReducer(cfg.VarianceRetained, logger); err != nil {
			return nil, err
		}
	case cfg.UseReduction:
		logger.Warn("[pipeline] USE_REDUCTION is ignored in %s mode; clustering full-dimension vectors", cfg.Mode)
	}
	return p, nil
}

// Run fetches, embeds, clusters and upserts. Every stage completes before the
// single write, so a failure leaves the stored assignments untouched.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)

	listings, err := p.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if len(listings) == 0 {
		return nil, &ClusteringError{Mode: p.cfg.Mode, Reason: "no listings in store"}
	}
	log.Info("[pipeline] Loaded %d listings", len(listings))

	outlines := make([]string, len(listings))
	overviews := make([]string, len(listings))
	highLevels := make([]string, len(listings))
	for i, l := range listings {
		views := p.narratives.Build(l)
		l.SetNarratives(views)
		outlines[i], overviews[i], highLevels[i] = views.Outline, views.Overview, views.HighLevel
	}

	outlineVecs, err := p.generator.Generate(ctx, "outline", outlines)
	if err != nil {
		return nil, fmt.Errorf("pipeline: embed outlines: %w", err)
	}
	overviewVecs, err := p.generator.Generate(ctx, "overview", overviews)
	if err != nil {
		return nil, fmt.Errorf("pipeline: embed overviews: %w", err)
	}
	highLevelVecs, err := p.generator.Generate(ctx, "high-level", highLevels)
	if err != nil {
		return nil, fmt.Errorf("pipeline: embed high-level summaries: %w", err)
	}

	vectors, err := p.fuser.FuseAll(outlineVecs, overviewVecs, highLevelVecs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if p.reducer != nil {
		red, err := p.reducer.Reduce(vectors)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		vectors = red.Vectors
	}

	labels, err := p.engine.Cluster(vectors)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	ids := make([]int64, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	members, err := Aggregate(ids, labels)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	for i, l := range listings {
		l.SetCluster(labels[i], members[i])
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := p.store.UpsertAll(ctx, listings); err != nil {
		return nil, fmt.Errorf("pipeline: write results: %w", err)
	}

	report := p.insights.Generate(listings, labels)
	report.RunID = runID
	report.Mode = p.cfg.Mode
	report.Dimensions = len(vectors[0])
	log.Info("[pipeline] Stored %d listings: %d clusters, %d noise", len(listings), report.Clusters, report.NoiseListings)

	return &RunResult{RunID: runID, Listings: listings, Labels: labels, Report: report}, nil
}
