package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/probehq/probe/internal/perr"
)

// Cross-encoder sidecar defaults.
const (
	DefaultEndpoint = "http://127.0.0.1:8700"
	DefaultTimeout  = 30 * time.Second
)

// CrossEncoderConfig configures the HTTP client to a local cross-encoder
// inference sidecar.
type CrossEncoderConfig struct {
	Endpoint        string
	Timeout         time.Duration
	SkipHealthCheck bool
}

// CrossEncoder talks to a local inference sidecar that has already
// loaded the resolved model: a thin HTTP client with a health check and
// a (query, documents[]) -> scores request/response contract.
type CrossEncoder struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewCrossEncoder dials a sidecar already serving the given resolved
// model's id, health-checking it unless cfg.SkipHealthCheck is set.
// cfg.Timeout (default DefaultTimeout) bounds each Score request.
func NewCrossEncoder(ctx context.Context, model string, cfg CrossEncoderConfig) (*CrossEncoder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	c := &CrossEncoder{client: client, endpoint: cfg.Endpoint, model: model, timeout: cfg.Timeout}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := c.healthCheck(checkCtx); err != nil {
			return nil, perr.Wrap(perr.ModelLoadError, err, "cross-encoder sidecar health check failed")
		}
	}

	return c, nil
}

func (c *CrossEncoder) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health check request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to cross-encoder sidecar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sidecar unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type scoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type scoreResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Score returns one raw score per document, in input order.
func (c *CrossEncoder) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, perr.New(perr.ModelLoadError, "cross-encoder client is closed")
	}
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := scoreRequest{Query: query, Documents: documents, Model: c.model}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(documents))
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < len(scores) {
			scores[r.Index] = r.Score
		}
	}
	return scores, nil
}

// Available reports whether the sidecar currently responds healthy.
func (c *CrossEncoder) Available(ctx context.Context) bool {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.healthCheck(checkCtx) == nil
}

// Close releases idle connections.
func (c *CrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if transport, ok := c.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
