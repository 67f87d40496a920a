package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// maxResponseBytes caps how much of a scan response is read.
const maxResponseBytes = 1 << 20

// Client calls the remote threat-scanning endpoint once per URL.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     ports.Logger
}

// NewClient builds a scanner for endpoint. Each call is bounded by timeout.
func NewClient(endpoint string, timeout time.Duration, logger ports.Logger) *Client {
	if endpoint == "" {
		endpoint = domain.DefaultScanEndpoint
	}
	if timeout <= 0 {
		timeout = domain.DefaultScanTimeout
	}
	return &Client{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Endpoint returns the configured scan URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type scanRequest struct {
	URL string `json:"url"`
}

type scanResponse struct {
	Status  string               `json:"status"`
	Threats []domain.ThreatMatch `json:"threats"`
}

// Scan implements ports.ThreatScanner. It never returns an error: any failure
// is folded into a SAFE verdict by ClassifyScanOutcome.
func (c *Client) Scan(ctx context.Context, url string, token string) domain.ScanResult {
	result, err := c.scan(ctx, url, token)
	if err != nil {
		c.logger.Warn("scan failed, allowing navigation", map[string]interface{}{
			"url":     url,
			"failure": failureKind(err),
			"error":   err.Error(),
		})
		return ClassifyScanOutcome(result, err)
	}
	c.logger.Debug("scan completed", map[string]interface{}{
		"url":     url,
		"verdict": result.Verdict,
		"threats": len(result.Threats),
	})
	return ClassifyScanOutcome(result, nil)
}

// ClassifyScanOutcome is the single fail-open decision: any scan error yields
// SAFE with no threats.
func ClassifyScanOutcome(result domain.ScanResult, err error) domain.ScanResult {
	if err != nil {
		return domain.SafeResult()
	}
	if result.Threats == nil {
		result.Threats = []domain.ThreatMatch{}
	}
	return result
}

func (c *Client) scan(ctx context.Context, target string, token string) (domain.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(scanRequest{URL: target})
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("%w: encode request: %v", domain.ErrScanBadResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("%w: build request: %v", domain.ErrScanNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ScanResult{}, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ScanResult{}, fmt.Errorf("%w: status %s", domain.ErrScanBadResponse, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.ScanResult{}, transportError(ctx, err)
	}

	var decoded scanResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.ScanResult{}, fmt.Errorf("%w: decode: %v", domain.ErrScanBadResponse, err)
	}
	verdict, ok := domain.ParseVerdict(decoded.Status)
	if !ok {
		return domain.ScanResult{}, fmt.Errorf("%w: unknown status %q", domain.ErrScanBadResponse, decoded.Status)
	}

	return domain.ScanResult{
		Verdict: verdict,
		Threats: normalizeThreats(decoded.Threats, target),
	}, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrScanTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrScanNetwork, err)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrScanTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrScanNetwork):
		return "network"
	case errors.Is(err, domain.ErrScanBadResponse):
		return "bad-response"
	default:
		return "unknown"
	}
}

func normalizeThreats(in []domain.ThreatMatch, target string) []domain.ThreatMatch {
	out := make([]domain.ThreatMatch, 0, len(in))
	for _, t := range in {
		platform := strings.ToUpper(strings.TrimSpace(t.Platform))
		if platform == "" {
			platform = "ANY_PLATFORM"
		}
		url := t.URL
		if url == "" {
			url = target
		}
		out = append(out, domain.ThreatMatch{
			Type:     strings.ToUpper(strings.TrimSpace(t.Type)),
			Platform: platform,
			URL:      url,
		})
	}
	return out
}

var _ ports.ThreatScanner = (*Client)(nil)
