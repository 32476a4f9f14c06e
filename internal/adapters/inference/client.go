// Package inference scores windows against a remote model service over
// HTTP, falling back to the local formulas when the service is slow or
// unreachable. Results carry the name of the scorer that produced them.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// Config locates the inference service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
}

// Client is a thin JSON-over-HTTP client for the model service.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.ApplyDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference %s returned %d: %s", path, resp.StatusCode, b)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type symmetryRequest struct {
	Amplitudes map[domain.LegLabel]float64 `json:"amplitudes"`
}

type stressRequest struct {
	RRIntervalsMS []float64 `json:"rr_intervals_ms"`
}

// SymmetryScorer scores amplitudes remotely.
type SymmetryScorer struct {
	client *Client
}

func NewSymmetryScorer(client *Client) *SymmetryScorer {
	return &SymmetryScorer{client: client}
}

func (s *SymmetryScorer) Name() string { return "remote-inference" }

func (s *SymmetryScorer) ScoreSymmetry(ctx context.Context, amps map[domain.LegLabel]float64) (domain.SymmetryScores, error) {
	var out domain.SymmetryScores
	err := s.client.post(ctx, "/v1/score/gait", symmetryRequest{Amplitudes: amps}, &out)
	return out, err
}

// StressScorer grades R-R series remotely.
type StressScorer struct {
	client *Client
}

func NewStressScorer(client *Client) *StressScorer {
	return &StressScorer{client: client}
}

func (s *StressScorer) Name() string { return "remote-inference" }

func (s *StressScorer) ScoreStress(ctx context.Context, rr []float64) (domain.StressAssessment, error) {
	var out domain.StressAssessment
	err := s.client.post(ctx, "/v1/score/hrv", stressRequest{RRIntervalsMS: rr}, &out)
	return out, err
}

// SymmetryFallback tries the remote scorer first and silently degrades
// to the local formulas on any error.
type SymmetryFallback struct {
	primary  ports.SymmetryScorer
	fallback ports.SymmetryScorer
	obs      ports.Observability
}

func NewSymmetryFallback(primary, fallback ports.SymmetryScorer, obs ports.Observability) *SymmetryFallback {
	return &SymmetryFallback{primary: primary, fallback: fallback, obs: obs}
}

func (s *SymmetryFallback) Name() string { return s.primary.Name() }

func (s *SymmetryFallback) ScoreSymmetry(ctx context.Context, amps map[domain.LegLabel]float64) (domain.SymmetryScores, error) {
	scores, err := s.primary.ScoreSymmetry(ctx, amps)
	if err == nil {
		return scores, nil
	}
	s.obs.LogError("remote symmetry scoring failed, using local formulas", err)
	s.obs.IncCounter("equinesync_inference_fallbacks_total", 1)
	return s.fallback.ScoreSymmetry(ctx, amps)
}

// StressFallback mirrors SymmetryFallback for the HRV path.
type StressFallback struct {
	primary  ports.StressScorer
	fallback ports.StressScorer
	obs      ports.Observability
}

func NewStressFallback(primary, fallback ports.StressScorer, obs ports.Observability) *StressFallback {
	return &StressFallback{primary: primary, fallback: fallback, obs: obs}
}

func (s *StressFallback) Name() string { return s.primary.Name() }

func (s *StressFallback) ScoreStress(ctx context.Context, rr []float64) (domain.StressAssessment, error) {
	sa, err := s.primary.ScoreStress(ctx, rr)
	if err == nil {
		return sa, nil
	}
	s.obs.LogError("remote stress scoring failed, using local formulas", err)
	s.obs.IncCounter("equinesync_inference_fallbacks_total", 1)
	return s.fallback.ScoreStress(ctx, rr)
}

var (
	_ ports.SymmetryScorer = (*SymmetryScorer)(nil)
	_ ports.StressScorer   = (*StressScorer)(nil)
	_ ports.SymmetryScorer = (*SymmetryFallback)(nil)
	_ ports.StressScorer   = (*StressFallback)(nil)
)
