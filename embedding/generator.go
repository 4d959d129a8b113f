package embedding

import (
	"context"
	"fmt"

	"airbnb-similarity/utils"
)

// DefaultBatchSize is the number of texts sent to the embedder at once.
const DefaultBatchSize = 32

// Generator embeds columns of text in fixed-size batches and L2-normalises
// every vector independently. Batch boundaries never affect output values.
type Generator struct {
	embedder    Embedder
	batchSize   int
	concurrency int
	rateLimitMs int
	logger      *utils.Logger
}

// GeneratorOptions tune batching. Zero values mean defaults.
type GeneratorOptions struct {
	BatchSize   int
	Concurrency int
	RateLimitMs int
}

// NewGenerator wraps e.
func NewGenerator(e Embedder, opts GeneratorOptions, logger *utils.Logger) *Generator {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Generator{
		embedder:    e,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		rateLimitMs: opts.RateLimitMs,
		logger:      logger,
	}
}

// Generate returns one unit vector per text, in input order. Any failure
// aborts the whole column: callers never see a partial result.
func (g *Generator) Generate(ctx context.Context, label string, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	batches := (len(texts) + g.batchSize - 1) / g.batchSize
	g.logger.Info("[embedding] Encoding %d %s texts in %d batches", len(texts), label, batches)

	pool := utils.NewWorkerPool(ctx, g.concurrency, g.rateLimitMs)
	for b := 0; b < batches; b++ {
		batch := b
		start := batch * g.batchSize
		end := min(start+g.batchSize, len(texts))

		pool.Submit(func(ctx context.Context) error {
			vecs, err := g.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return &EncodingError{Batch: batch, Index: -1, Err: err}
			}
			if len(vecs) != end-start {
				return &EncodingError{Batch: batch, Index: -1,
					Err: fmt.Errorf("got %d vectors for %d texts", len(vecs), end-start)}
			}
			for i, v := range vecs {
				if dim := g.embedder.Dimension(); dim > 0 && len(v) != dim {
					return &EncodingError{Batch: batch, Index: start + i,
						Err: fmt.Errorf("vector has %d dims, want %d", len(v), dim)}
				}
				unit, ok := utils.NormalizeL2(v)
				if !ok {
					return &EncodingError{Batch: batch, Index: start + i, Err: ErrDegenerateVector}
				}
				out[start+i] = unit
			}
			g.logger.Debug("[embedding] %s batch %d/%d done", label, batch+1, batches)
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
