package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"airbnb-similarity/utils"
)

// ClientConfig configures the OpenAI-compatible embeddings client.
type ClientConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *utils.Logger
}

// Client talks to an OpenAI-compatible /embeddings endpoint (OpenAI, Ollama,
// LM Studio, text-embeddings-inference).
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	http      *http.Client
	retry     *utils.RetryConfig
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewClient creates a client. Call Probe before use to learn the dimension.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: timeout},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Logger:      logger,
		},
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the vector size reported by the probe, or 0 before it.
func (c *Client) Dimension() int { return c.dimension }

// Probe embeds a single short text without retrying and records the
// dimension of the model.
func (c *Client) Probe(ctx context.Context) error {
	vecs, err := c.post(ctx, []string{"probe"})
	if err != nil {
		return err
	}
	c.dimension = len(vecs[0])
	return nil
}

// EmbedBatch embeds texts in one request, retrying transient failures.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var out [][]float64
	err := c.retry.Do(ctx, "embed batch", func() error {
		vecs, err := c.post(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	})
	return out, err
}

func (c *Client) post(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
	case resp.StatusCode >= 300:
		return nil, utils.Permanent(fmt.Errorf("embeddings request failed: %s", resp.Status))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, utils.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, utils.Permanent(fmt.Errorf("got %d embeddings for %d texts", len(parsed.Data), len(texts)))
	}

	out := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, utils.Permanent(fmt.Errorf("bad embedding index %d", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, utils.Permanent(fmt.Errorf("empty embedding at index %d", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
