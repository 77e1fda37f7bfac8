// Package register looks pharmacy names up in the public register and turns
// the HTML answer into candidate records.
package register

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/giygas/pharmacy-validator/config"
	"github.com/giygas/pharmacy-validator/entities"
	"github.com/giygas/pharmacy-validator/interfaces"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/giygas/pharmacy-validator/metrics"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure Client implements Fetcher
var _ interfaces.Fetcher = (*Client)(nil)

// maxBodySize caps how much of a register page is read
const maxBodySize = 10 << 20

const userAgent = "pharmacy-validator/1.0"

// Client performs one GET per lookup against the register
type Client struct {
	baseURL    string
	queryParam string
	httpClient *http.Client
}

// NewClient creates a register client. timeout bounds the whole request,
// body included.
func NewClient(baseURL, queryParam string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		queryParam: queryParam,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientFromConfig creates a register client from the loaded configuration
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.RegisterURL, cfg.QueryParam, cfg.RequestTimeout)
}

// Fetch looks name up and returns the candidates listed in the first table
// of the answer, in page order
func (c *Client) Fetch(ctx context.Context, name string) ([]entities.Candidate, error) {
	start := time.Now()
	candidates, err := c.fetch(ctx, name)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(candidates) == 0:
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveLookup(outcome, time.Since(start))

	return candidates, err
}

func (c *Client) fetch(ctx context.Context, name string) ([]entities.Candidate, error) {
	lookupURL, err := c.lookupURL(name)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	// The register still answers with an HTML page on errors; it is parsed
	// like any other page
	if response.StatusCode < 200 || response.StatusCode > 299 {
		logging.Warn("Register answered with a non-success status",
			"status", response.StatusCode,
			"name", name)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	candidates, err := ParseCandidates(decodeBody(body))
	if err != nil {
		return nil, err
	}

	logging.Debug("Register lookup finished", "name", name, "candidates", len(candidates))
	return candidates, nil
}

func (c *Client) lookupURL(name string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid register URL %q: %w", c.baseURL, err)
	}

	q := u.Query()
	q.Set(c.queryParam, name)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// decodeBody returns UTF-8 text. Pages served in a legacy Windows code page
// are converted, everything else is passed through.
func decodeBody(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(body)
	if err != nil {
		logging.Warn("Failed to decode register page, using raw bytes", "error", err)
		return body
	}
	return decoded
}
