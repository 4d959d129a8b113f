package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// HashEmbedder is a deterministic, dependency-free embedder: unigrams and
// bigrams are hashed into a fixed number of signed buckets. It needs no
// model download, which makes it suitable for offline runs and tests.
type HashEmbedder struct {
	dim          int
	tokenPattern *regexp.Regexp
}

// NewHashEmbedder creates an embedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:\.\p{N}+)?`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *HashEmbedder) Name() string { return "hash" }

// Dimension returns the dimensionality of the produced vectors.
func (e *HashEmbedder) Dimension() int { return e.dim }

// EmbedBatch hashes every text independently. Vectors are not normalised.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dim)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		e.add(vec, tok)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok)
		}
	}
	return vec
}

func (e *HashEmbedder) add(vec []float64, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % uint64(e.dim)
	if sum>>63 == 1 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}
