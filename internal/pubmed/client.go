// Package pubmed resolves search terms to PubMed article counts over the
// NCBI E-utilities service, absorbing the service's throttling and transient
// failures.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// FaultKind classifies a failure reported by the remote service itself, as
// opposed to a transport-level failure below the protocol.
type FaultKind int

const (
	FaultThrottled FaultKind = iota
	FaultServer
	FaultOther
)

func (k FaultKind) String() string {
	switch k {
	case FaultThrottled:
		return "throttled"
	case FaultServer:
		return "server_error"
	default:
		return "other"
	}
}

// ServiceFault is a failure the remote service reported through its protocol.
// Network errors and malformed responses are returned as plain errors instead
// and handled by a separate backoff layer.
type ServiceFault struct {
	Kind       FaultKind
	StatusCode int
	Detail     string
}

func (f *ServiceFault) Error() string {
	return fmt.Sprintf("pubmed %s fault (HTTP %d): %s", f.Kind, f.StatusCode, f.Detail)
}

// Querier issues a single count lookup against the remote service.
type Querier interface {
	Count(ctx context.Context, term string) (int, error)
}

// Client queries the esearch endpoint of NCBI E-utilities.
type Client struct {
	baseURL    string
	email      string
	tool       string
	httpClient *http.Client
}

func NewClient(baseURL, email, tool string) *Client {
	return &Client{
		baseURL:    baseURL,
		email:      email,
		tool:       tool,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type esearchResponse struct {
	Result struct {
		Count string `json:"count"`
	} `json:"esearchresult"`
}

// Count issues one esearch query and returns the reported article count.
// Service-reported failures come back as *ServiceFault; anything below the
// protocol (connection errors, unreadable or malformed bodies) comes back as
// a plain error.
func (c *Client) Count(ctx context.Context, term string) (int, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("email", c.email)
	params.Set("tool", c.tool)

	endpoint := fmt.Sprintf("%s/esearch.fcgi?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build esearch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query pubmed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &ServiceFault{Kind: FaultThrottled, StatusCode: resp.StatusCode, Detail: resp.Status}
	case resp.StatusCode >= 500:
		return 0, &ServiceFault{Kind: FaultServer, StatusCode: resp.StatusCode, Detail: resp.Status}
	case resp.StatusCode != http.StatusOK:
		return 0, &ServiceFault{Kind: FaultOther, StatusCode: resp.StatusCode, Detail: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read esearch response: %w", err)
	}

	var payload esearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode esearch response: %w", err)
	}

	count, err := strconv.Atoi(payload.Result.Count)
	if err != nil {
		return 0, fmt.Errorf("esearch count %q is not a number: %w", payload.Result.Count, err)
	}
	if count < 0 {
		return 0, fmt.Errorf("esearch reported negative count %d", count)
	}
	return count, nil
}
