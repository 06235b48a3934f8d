package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/feaso/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

// HTTPSource fetches schedules from GET {base}/projects/{id}/schedule.
type HTTPSource struct {
	base  string
	token string
	http  *http.Client
}

// NewHTTPSource creates a source for the given base URL. Returns nil if the
// URL is empty. token is sent as a bearer token when set.
func NewHTTPSource(base, token string) *HTTPSource {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil
	}
	return &HTTPSource{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{},
	}
}

// LoadSchedule implements ScheduleSource.
func (s *HTTPSource) LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error) {
	body, err := s.get(ctx, "/projects/"+url.PathEscape(projectID)+"/schedule")
	if err != nil {
		return nil, err
	}
	return Parse(body, FormatJSON)
}

// get performs a GET request and returns the response body.
func (s *HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule: creating request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/feaso/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schedule: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schedule: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("schedule: reading response: %w", err)
	}
	return body, nil
}
