package tidecrawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/tidecrawl/tidecrawl-go/internal/metrics"
	"github.com/tidecrawl/tidecrawl-go/internal/ratelimit"
	"github.com/tidecrawl/tidecrawl-go/internal/retry"
)

const (
	headerIdempotencyKey = "x-idempotency-key"

	// maxStreamFrameBytes bounds a single stream frame. Catchup frames can
	// carry a whole backlog of documents.
	maxStreamFrameBytes = 16 << 20
)

type transportOptions struct {
	apiURL      string
	apiKey      string
	httpClient  *http.Client
	timeout     time.Duration
	policy      *retry.Policy
	gate        *ratelimit.Gate
	collector   *metrics.Collector
	logger      *zap.Logger
	idempotency bool
}

// transport issues authenticated requests against the Tidecrawl API and
// dials job streams. Requests that hit a bad gateway are retried with
// exponential backoff; every other failure maps onto a typed *APIError.
type transport struct {
	http      *resty.Client
	wsHTTP    *http.Client
	apiURL    string
	apiKey    string
	policy    *retry.Policy
	gate      *ratelimit.Gate
	collector *metrics.Collector
	logger    *zap.Logger

	idempotency bool
}

func newTransport(opts transportOptions) *transport {
	t := &transport{
		apiURL:      strings.TrimRight(opts.apiURL, "/"),
		apiKey:      opts.apiKey,
		policy:      opts.policy,
		gate:        opts.gate,
		collector:   opts.collector,
		logger:      opts.logger,
		idempotency: opts.idempotency,
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}

	client := resty.New()
	if opts.httpClient != nil {
		client = resty.NewWithClient(opts.httpClient)
	}
	client.
		SetBaseURL(t.apiURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "tidecrawl-go/"+Version).
		SetAuthToken(t.apiKey).
		SetRetryCount(t.policy.MaxAttempts() - 1).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err == nil && resp.StatusCode() == http.StatusBadGateway
		}).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			return t.policy.Delay(resp.Request.Attempt - 1), nil
		})
	if opts.timeout > 0 {
		client.SetTimeout(opts.timeout)
	}
	client.OnBeforeRequest(t.beforeRequest)
	client.OnAfterResponse(t.afterResponse)
	client.OnError(func(req *resty.Request, err error) {
		t.logger.Warn("api request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err),
		)
	})
	t.http = client

	// The stream handshake reuses the caller's transport but never its
	// timeout: a watch connection outlives any sane request deadline.
	wsHTTP := opts.httpClient
	if wsHTTP == nil {
		wsHTTP = http.DefaultClient
	}
	if wsHTTP.Timeout > 0 {
		clone := *wsHTTP
		clone.Timeout = 0
		wsHTTP = &clone
	}
	t.wsHTTP = wsHTTP
	return t
}

func (t *transport) beforeRequest(_ *resty.Client, req *resty.Request) error {
	return t.gate.Wait(req.Context())
}

func (t *transport) afterResponse(_ *resty.Client, resp *resty.Response) error {
	t.collector.ObserveRequest(resp.Request.Method, resp.StatusCode(), resp.Time())
	if resp.Request.Attempt > 1 {
		t.collector.ObserveRetry()
	}
	t.logger.Debug("api response",
		zap.String("method", resp.Request.Method),
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Int("attempt", resp.Request.Attempt),
		zap.Duration("elapsed", resp.Time()),
	)
	return nil
}

// withOrigin tags a request payload with the SDK identity before submission.
func withOrigin(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	body["origin"] = "go-sdk@" + Version
	return body, nil
}

func (t *transport) postJSON(ctx context.Context, op, path string, payload, out any) error {
	body, err := withOrigin(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req := t.http.R().SetContext(ctx).SetBody(body)
	if t.idempotency {
		req.SetHeader(headerIdempotencyKey, uuid.NewString())
	}
	resp, err := req.Post(path)
	return t.decode(op, resp, err, out)
}

func (t *transport) getJSON(ctx context.Context, op, path string, query map[string]string, out any) error {
	req := t.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return t.decode(op, resp, err, out)
}

func (t *transport) deleteJSON(ctx context.Context, op, path string, out any) error {
	resp, err := t.http.R().SetContext(ctx).Delete(path)
	return t.decode(op, resp, err, out)
}

// decode finishes a request: transport errors are wrapped with the
// operation, HTTP error statuses become *APIError values, and successful
// bodies are unmarshaled into out when it is non-nil.
func (t *transport) decode(op string, resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return t.apiError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// apiError builds a typed error from an HTTP failure, preferring the
// service's own error message and details when the body carries them.
func (t *transport) apiError(op string, resp *resty.Response) error {
	message := http.StatusText(resp.StatusCode())
	details := ""
	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Error != "" {
			message = body.Error
		}
		if len(body.Details) > 0 && string(body.Details) != "null" {
			details = string(body.Details)
		}
	}
	return newAPIError(op, resp.StatusCode(), message, details)
}

type submitResponse struct {
	Success     bool     `json:"success"`
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	InvalidURLs []string `json:"invalidURLs"`
	Error       string   `json:"error"`
}

// submitJob starts a crawl or batch scrape and returns its handle.
func (t *transport) submitJob(ctx context.Context, kind JobKind, payload any) (*JobRef, error) {
	op := "start " + string(kind)
	var res submitResponse
	if err := t.postJSON(ctx, op, kind.basePath(), payload, &res); err != nil {
		return nil, err
	}
	if !res.Success || res.ID == "" {
		if res.Error == "" {
			res.Error = "service did not return a job id"
		}
		return nil, fmt.Errorf("%s: %s", op, res.Error)
	}
	return &JobRef{Kind: kind, ID: res.ID, URL: res.URL, InvalidURLs: res.InvalidURLs}, nil
}

type statusEnvelope struct {
	Success     bool       `json:"success"`
	Status      JobStatus  `json:"status"`
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	CreditsUsed int        `json:"creditsUsed"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	Next        *string    `json:"next"`
	Data        []Document `json:"data"`
	Error       string     `json:"error"`
}

func (e *statusEnvelope) snapshot() *JobSnapshot {
	snap := &JobSnapshot{
		Status:      e.Status,
		Completed:   e.Completed,
		Total:       e.Total,
		CreditsUsed: e.CreditsUsed,
		ExpiresAt:   e.ExpiresAt,
		Data:        e.Data,
		Error:       e.Error,
	}
	if e.Next != nil {
		snap.Next = *e.Next
	}
	return snap
}

// jobStatus fetches the current snapshot for a job. Once a job has
// completed, large document sets are paginated; with autoPaginate the
// remaining pages are fetched and folded in, and the returned snapshot's
// Next cursor is cleared. Cursors are only followed on completed jobs
// because they are not stable before that.
func (t *transport) jobStatus(ctx context.Context, kind JobKind, id string, autoPaginate bool) (*JobSnapshot, error) {
	op := string(kind) + " status"
	var env statusEnvelope
	if err := t.getJSON(ctx, op, kind.basePath()+"/"+id, nil, &env); err != nil {
		return nil, err
	}
	snap := env.snapshot()
	if autoPaginate && snap.Status == StatusCompleted && snap.Next != "" {
		if err := t.fetchRemaining(ctx, op, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// fetchRemaining walks the pagination cursor until it runs out, appending
// each page's documents. An empty page ends the walk even if the service
// keeps offering a cursor.
func (t *transport) fetchRemaining(ctx context.Context, op string, snap *JobSnapshot) error {
	next := snap.Next
	for next != "" {
		var page statusEnvelope
		if err := t.getJSON(ctx, op, next, nil, &page); err != nil {
			return err
		}
		if len(page.Data) == 0 {
			break
		}
		snap.Data = append(snap.Data, page.Data...)
		if page.Next == nil {
			break
		}
		next = *page.Next
	}
	snap.Next = ""
	return nil
}

type cancelResponse struct {
	Success bool      `json:"success"`
	Status  JobStatus `json:"status"`
	Error   string    `json:"error"`
}

// cancelJob asks the service to stop a running job. It returns an error
// when the service acknowledges the request without actually cancelling.
func (t *transport) cancelJob(ctx context.Context, kind JobKind, id string) error {
	op := "cancel " + string(kind)
	var res cancelResponse
	if err := t.deleteJSON(ctx, op, kind.basePath()+"/"+id, &res); err != nil {
		return err
	}
	if res.Status != StatusCancelled {
		if res.Error != "" {
			return fmt.Errorf("%s: %s", op, res.Error)
		}
		return fmt.Errorf("%s: job %s was not cancelled", op, id)
	}
	return nil
}

// dialStream opens the watch socket for a job. The caller owns the
// returned connection and must close it.
func (t *transport) dialStream(ctx context.Context, kind JobKind, id string) (*websocket.Conn, error) {
	op := "watch " + string(kind)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.apiKey)
	conn, resp, err := websocket.Dial(ctx, streamURL(t.apiURL, kind, id), &websocket.DialOptions{
		HTTPClient: t.wsHTTP,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, newAPIError(op, resp.StatusCode, "stream handshake rejected", "")
		}
		return nil, fmt.Errorf("%s: dial stream: %w", op, err)
	}
	conn.SetReadLimit(maxStreamFrameBytes)
	t.logger.Debug("stream connected", zap.String("kind", string(kind)), zap.String("job_id", id))
	return conn, nil
}

// streamURL derives the websocket endpoint from the API base URL by
// swapping the scheme: https becomes wss, http becomes ws.
func streamURL(base string, kind JobKind, id string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimRight(base, "/") + kind.basePath() + "/" + id
}
