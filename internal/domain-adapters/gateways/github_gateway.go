package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/reaplug/reaplug/internal/domain/entities"
	ifgateways "github.com/reaplug/reaplug/internal/domain/interfaces/gateways"
)

var _ ifgateways.ReleaseGateway = (*HTTPReleaseGateway)(nil)

const (
	defaultAPIBase = "https://api.github.com"
	// Max retries for transient errors
	maxRetries = 3
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
)

// HTTPReleaseGateway implements gateways.ReleaseGateway against the
// GitHub releases API using the standard HTTP client.
type HTTPReleaseGateway struct {
	client    *http.Client
	token     string
	userAgent string
	apiBase   string
}

// NewHTTPReleaseGateway creates a new release gateway. token may be
// empty; unauthenticated requests work within GitHub's anonymous rate
// limit. REAPLUG_API_BASE overrides the API endpoint.
func NewHTTPReleaseGateway(token string) *HTTPReleaseGateway {
	apiBase := strings.TrimSpace(os.Getenv("REAPLUG_API_BASE"))
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &HTTPReleaseGateway{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		token:     token,
		userAgent: "reaplug/1.0",
		apiBase:   strings.TrimRight(apiBase, "/"),
	}
}

// checkRateLimit checks GitHub API rate limit headers and returns error if exhausted
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil // No rate limit header, continue
	}

	remainingInt, err := strconv.Atoi(remaining)
	if err != nil {
		return nil // Invalid header, ignore
	}

	// If exhausted, return error immediately instead of waiting
	if remainingInt == 0 {
		resetTime := resp.Header.Get("X-RateLimit-Reset")
		if resetTime != "" {
			if resetUnix, err := strconv.ParseInt(resetTime, 10, 64); err == nil {
				resetAt := time.Unix(resetUnix, 0)
				return fmt.Errorf("GitHub API rate limit exceeded (0 remaining), resets at %s", resetAt.Format(time.RFC3339))
			}
		}
		return fmt.Errorf("GitHub API rate limit exceeded (0 remaining)")
	}

	if remainingInt <= 10 {
		fmt.Fprintf(os.Stderr, "Warning: GitHub API rate limit low: %d remaining\n", remainingInt)
	}

	return nil
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, // 403 - rate limit
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes an HTTP request with exponential backoff retry.
// Requests here are GETs with no body, safe to reissue.
func (g *HTTPReleaseGateway) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt - 1)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
		}

		resp, err = g.client.Do(req)
		if err != nil {
			// Network errors are retryable
			if attempt < maxRetries {
				continue
			}
			return nil, err
		}

		if rateLimitErr := checkRateLimit(resp); rateLimitErr != nil {
			//nolint:errcheck,gosec // G104: Best effort close on rate limit error
			resp.Body.Close()
			return nil, rateLimitErr
		}

		// Success or non-retryable error
		if !isRetryableError(resp.StatusCode) {
			return resp, nil
		}

		// Retryable error - close body and retry
		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()

		if attempt < maxRetries {
			continue
		}

		// Max retries reached
		return resp, nil
	}

	return resp, err
}

// githubRelease represents the GitHub API release format
type githubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []githubAsset `json:"assets"`
}

// githubAsset represents a GitHub release asset
type githubAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GetLatestRelease retrieves the latest published release for a repository
func (g *HTTPReleaseGateway) GetLatestRelease(ctx context.Context, owner, repo string) (*entities.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.apiBase, owner, repo)
	return g.fetchRelease(ctx, url, owner+"/"+repo)
}

// GetReleaseByTag retrieves a release by tag name
func (g *HTTPReleaseGateway) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*entities.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", g.apiBase, owner, repo, tag)
	return g.fetchRelease(ctx, url, owner+"/"+repo+"@"+tag)
}

func (g *HTTPReleaseGateway) fetchRelease(ctx context.Context, url, what string) (*entities.Release, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.doWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release for %s: %w", what, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("release not found: %s", what)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("HTTP %d: failed to read error response", resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	release := &entities.Release{TagName: result.TagName}
	release.Assets = make([]entities.ReleaseAsset, len(result.Assets))
	for i, a := range result.Assets {
		release.Assets[i] = entities.ReleaseAsset{
			Name:               a.Name,
			Size:               a.Size,
			BrowserDownloadURL: a.BrowserDownloadURL,
		}
	}

	return release, nil
}
