// Package analysis is the HTTP adapter for the remote analysis engine.
package analysis

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/observability"
	"github.com/yungbote/prism-backend/internal/platform/httpx"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/prism-backend/internal/clients/analysis")

type Options struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	// RetryBase is the first backoff delay; it doubles per attempt.
	RetryBase  time.Duration
	HTTPClient *http.Client
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	maxRetries int
	retryBase  time.Duration
	httpClient *http.Client
}

var _ lifecycle.AnalysisGateway = (*Client)(nil)

func New(log *logger.Logger, opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("analysis baseURL required")
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		log:        log.With("client", "AnalysisClient"),
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		maxRetries: maxRetries,
		retryBase:  retryBase,
		httpClient: hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Analyze posts the request and decodes the engine's decision. The deadline
// comes from ctx; the lifecycle sets it.
func (c *Client) Analyze(ctx context.Context, req lifecycle.Request) (review.VerdictInput, error) {
	start := time.Now()
	in, err := c.analyze(ctx, req)
	result := "ok"
	if err != nil {
		result = string(review.KindOf(err))
		if result == "" {
			result = "context"
		}
	}
	observability.Current().ObserveAnalysis(result, time.Since(start))
	return in, err
}

func (c *Client) analyze(ctx context.Context, req lifecycle.Request) (review.VerdictInput, error) {
	ctx, span := tracer.Start(ctx, "analysis.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("case.id", req.CaseID),
		attribute.Int("analysis.attempt", req.Attempt),
		attribute.String("policy.id", req.PolicyID),
	)

	body := analyzeRequest{
		CaseID:      req.CaseID,
		Attempt:     req.Attempt,
		DocumentRef: req.DocumentRef,
		PolicyID:    req.PolicyID,
		PolicyText:  req.PolicyText,
		ProviderID:  req.ProviderID,
	}
	var resp analyzeResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/analyses", idempotencyKey(req), body, &resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis request failed")
		return review.VerdictInput{}, c.classify(req.CaseID, err)
	}
	in, err := resp.toInput()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis response rejected")
		return review.VerdictInput{}, review.NewError(review.KindAnalysisRejected, req.CaseID, err)
	}
	span.SetAttributes(attribute.String("analysis.outcome", string(in.Outcome)))
	return in, nil
}

func idempotencyKey(req lifecycle.Request) string {
	return fmt.Sprintf("%s:analysis:%d", req.CaseID, req.Attempt)
}

// classify leaves context errors alone so the caller can tell a timeout apart.
func (c *Client) classify(caseID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var he *HTTPError
	if errors.As(err, &he) && !httpx.IsRetryableHTTPStatus(he.StatusCode) && he.StatusCode >= 400 && he.StatusCode < 500 {
		return review.NewError(review.KindAnalysisRejected, caseID, err)
	}
	return review.NewError(review.KindAnalysisUnavailable, caseID, err)
}

func (c *Client) setHeaders(req *http.Request, idemKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}

// doJSON retries transport failures and retryable statuses. Every retry
// carries the same idempotency key, so the engine runs the attempt once.
func (c *Client) doJSON(ctx context.Context, method, path, idemKey string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req, idemKey)

		var resp *http.Response
		resp, err = c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(raw, out); err != nil {
					return &HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "malformed analysis response: " + err.Error()}
				}
				return nil
			}
			lastErr = parseHTTPError(resp.StatusCode, raw)
		}

		if !httpx.IsRetryableError(lastErr) || attempt == c.maxRetries {
			break
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, httpx.Backoff(c.retryBase, 10*time.Second, attempt+1), 10*time.Second))
		c.log.Warn("analysis request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", lastErr.Error(),
		)
		if err := httpx.SleepContext(ctx, sleepFor); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
