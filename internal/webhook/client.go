package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Cancellation causes attached to a call's context. Classification reads the
// per-call cause, so concurrent CancelAll invocations cannot misattribute a
// timeout on an unrelated call.
var (
	errUserCancelled = errors.New("request cancelled by user")
	errCallTimeout   = errors.New("call timed out")
)

// Request describes one outbound webhook call.
type Request struct {
	Endpoint  string
	Payload   any
	KeyPrefix string
	Timeout   time.Duration
}

// Client issues outbound webhook calls. One logical POST per Execute, with a
// per-call timeout, cooperative cancellation and an exhaustive failure
// taxonomy. Safe for concurrent use.
type Client struct {
	http   *http.Client
	apiKey string

	mu       sync.Mutex
	inflight map[string]context.CancelCauseFunc
}

// NewClient constructs a webhook client. The apiKey, when non-empty, is sent
// as X-API-Key on every request.
func NewClient(apiKey string) *Client {
	return &Client{
		// Per-call deadlines are enforced through the call context, not the
		// transport, so the client itself carries no timeout.
		http:     &http.Client{},
		apiKey:   apiKey,
		inflight: make(map[string]context.CancelCauseFunc),
	}
}

// Execute performs a single POST of the JSON-encoded payload. It never
// returns an error past its boundary: every outcome, including transport
// failures and cancellation, comes back as a Result.
func (c *Client) Execute(ctx context.Context, req Request) Result {
	if req.Endpoint == "" {
		return failure(KindUnknown, "webhook endpoint is not configured")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, err := json.Marshal(req.Payload)
	if err != nil {
		return failure(KindUnknown, fmt.Sprintf("encode payload: %v", err))
	}

	callID := fmt.Sprintf("%s-%d", req.KeyPrefix, time.Now().UnixNano())
	callCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(timeout, func() { cancel(errCallTimeout) })
	c.register(callID, cancel)

	// Settlement releases the timer and the registry entry on every exit
	// branch; running it again for the same call is a no-op.
	defer func() {
		timer.Stop()
		c.deregister(callID)
		cancel(nil)
	}()

	tracer := otel.Tracer("chatgw.webhook")
	sctx, span := tracer.Start(callCtx, "webhook.execute", trace.WithAttributes(
		attribute.String("call.id", callID),
		attribute.String("call.endpoint", req.Endpoint),
	))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(sctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(KindUnknown, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		res := c.classifyTransport(callCtx, err)
		span.RecordError(res.Err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Best effort: a failed body read must not mask the HTTP error.
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		callErr := &CallError{
			Kind:       KindHTTP,
			Message:    fmt.Sprintf("API error: %s", resp.Status),
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(text),
		}
		span.RecordError(callErr)
		return Result{Err: callErr}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classifyTransport(callCtx, err)
	}
	if !json.Valid(raw) {
		return failure(KindUnknown, "response body is not valid JSON")
	}
	return success(raw)
}

// classifyTransport maps a failed round trip onto the taxonomy using the
// call's own cancellation cause.
func (c *Client) classifyTransport(callCtx context.Context, err error) Result {
	switch cause := context.Cause(callCtx); {
	case errors.Is(cause, errUserCancelled):
		return failure(KindUserCancelled, "Request cancelled by user")
	case errors.Is(cause, errCallTimeout), errors.Is(err, context.DeadlineExceeded):
		return failure(KindTimeout, "Connection timed out")
	case errors.Is(err, context.Canceled):
		// Cancelled through the parent context without a cause of ours.
		return failure(KindTimeout, "Connection timed out")
	default:
		return failure(KindNetwork, err.Error())
	}
}

// CancelAll signals user cancellation on every in-flight call and returns how
// many were signalled. It does not wait: callers observe the cancellation
// through each call's own Result. Calls registered afterwards are unaffected.
func (c *Client) CancelAll() int {
	c.mu.Lock()
	cancels := make([]context.CancelCauseFunc, 0, len(c.inflight))
	for _, cancel := range c.inflight {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel(errUserCancelled)
	}
	return len(cancels)
}

// Inflight reports how many calls are currently registered.
func (c *Client) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *Client) register(id string, cancel context.CancelCauseFunc) {
	c.mu.Lock()
	c.inflight[id] = cancel
	c.mu.Unlock()
}

func (c *Client) deregister(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}
