// Package sauce is a client for the provider's REST v1 user endpoints:
// sub-account listing and daily usage.
package sauce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

const (
	DefaultBaseURL = "https://saucelabs.com/rest/v1"

	tracerName   = "github.com/vnmchuo/sauce-usage/internal/sauce"
	maxErrorBody = 64 << 10
)

type Client struct {
	authHeader string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	runID      string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRunID tags spans so every call of one report run can be found together.
func WithRunID(runID string) Option {
	return func(c *Client) {
		c.runID = runID
	}
}

// New builds a client sending authHeader as the Authorization value.
func New(authHeader string, opts ...Option) *Client {
	c := &Client{
		authHeader: authHeader,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type SubAccount struct {
	Username      string `json:"username"`
	ChildrenCount int    `json:"children_count"`
}

type subAccountsResponse struct {
	Users []SubAccount `json:"users"`
}

type usageResponse struct {
	Usage []json.RawMessage `json:"usage"`
}

// ListSubAccounts returns the direct sub-accounts of account.
func (c *Client) ListSubAccounts(ctx context.Context, account string) ([]SubAccount, error) {
	endpoint := fmt.Sprintf("%s/users/%s/list-subaccounts", c.baseURL, url.PathEscape(account))

	var resp subAccountsResponse
	if err := c.get(ctx, "sauce.list_subaccounts", account, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Usage returns the daily usage of account, bounded by rng when set.
func (c *Client) Usage(ctx context.Context, account string, rng usage.Range) ([]usage.DailyRecord, error) {
	endpoint := fmt.Sprintf("%s/users/%s/usage", c.baseURL, url.PathEscape(account))
	if q := rng.Query(); len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var resp usageResponse
	if err := c.get(ctx, "sauce.usage", account, endpoint, &resp); err != nil {
		return nil, err
	}

	records := make([]usage.DailyRecord, 0, len(resp.Usage))
	for _, raw := range resp.Usage {
		rec, err := parseDay(raw)
		if err != nil {
			err.Account = account
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, spanName, account, endpoint string, out any) error {
	ctx, span := c.tracer.Start(ctx, spanName)
	defer span.End()

	requestID := uuid.New().String()
	span.SetAttributes(
		attribute.String("account", account),
		attribute.String("request_id", requestID),
	)
	if c.runID != "" {
		span.SetAttributes(attribute.String("run_id", c.runID))
	}

	err := c.do(ctx, span, requestID, endpoint, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, span trace.Span, requestID, endpoint string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.authHeader)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", redact(endpoint), err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
			Endpoint: redact(endpoint),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", redact(endpoint), err)
	}
	return nil
}

// redact drops the query so errors and logs only carry the path.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
