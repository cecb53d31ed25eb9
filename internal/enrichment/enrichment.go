// Package enrichment is the optional post-processing hook: a narrative
// analysis of a finished report and column-alias suggestions for files
// that could not be mapped. The pipeline is complete and correct without
// it; every failure here is logged and swallowed by the caller.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-recon/internal/domain"
)

// Service is the narrow interface the reconciliation service consumes.
type Service interface {
	Analyze(ctx context.Context, report *domain.ReconciliationReport) (string, error)
	// SuggestAliases proposes new column aliases given the raw headers of
	// files flagged needs_adaptation, keyed by source name.
	SuggestAliases(ctx context.Context, headers map[string][]string) (map[string][]string, error)
}

// Noop satisfies Service without doing anything; used when no enrichment
// backend is configured.
type Noop struct{}

func (Noop) Analyze(context.Context, *domain.ReconciliationReport) (string, error) {
	return "", nil
}

func (Noop) SuggestAliases(context.Context, map[string][]string) (map[string][]string, error) {
	return nil, nil
}

// HTTPService talks to an external enrichment backend over JSON.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(baseURL string) *HTTPService {
	return &HTTPService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPService) Analyze(ctx context.Context, report *domain.ReconciliationReport) (string, error) {
	var out struct {
		Analysis string `json:"analysis"`
	}
	if err := s.post(ctx, "/analyze", map[string]interface{}{"report": report}, &out); err != nil {
		return "", err
	}
	return out.Analysis, nil
}

func (s *HTTPService) SuggestAliases(ctx context.Context, headers map[string][]string) (map[string][]string, error) {
	var out struct {
		Aliases map[string][]string `json:"aliases"`
	}
	if err := s.post(ctx, "/adapt", map[string]interface{}{"headers": headers}, &out); err != nil {
		return nil, err
	}
	return out.Aliases, nil
}

func (s *HTTPService) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enrichment service returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
