// Package devserver provides the build-metadata server pool used for
// latest-build lookups. Servers answer "<branch>/<target>/LATEST" keys with
// a concrete artifact id; the pool spreads lookup load by selecting one
// server per call.
package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/suitescheduler/internal/version"
)

const maxResponseBytes = 64 * 1024

// Server is one build-metadata server.
type Server struct {
	baseURL string
	client  *http.Client
}

// NewServer creates a client for the server at baseURL. A nil httpClient
// gets a default with a 30s timeout.
func NewServer(baseURL string, httpClient *http.Client) *Server {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Server{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}
}

// Name identifies the server in logs and metrics.
func (s *Server) Name() string { return s.baseURL }

// ResolveLatest translates a latest-build key into the artifact id the
// server currently holds for it. Failures are returned as *LookupError and
// are not retried here.
func (s *Server) ResolveLatest(ctx context.Context, key string) (string, error) {
	lookupURL := fmt.Sprintf("%s/latestbuild?build=%s", s.baseURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, http.NoBody)
	if err != nil {
		return "", &LookupError{Server: s.baseURL, Key: key, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &LookupError{Server: s.baseURL, Key: key, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &LookupError{Server: s.baseURL, Key: key, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &LookupError{Server: s.baseURL, Key: key, Err: fmt.Errorf("read response: %w", err)}
	}

	build := strings.TrimSpace(string(body))
	if build == "" {
		return "", &LookupError{Server: s.baseURL, Key: key, Err: ErrEmptyResponse}
	}
	return build, nil
}
