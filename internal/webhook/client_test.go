package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExecuteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":"hello"}`))
	}))
	defer srv.Close()

	c := NewClient("")
	result := c.Execute(context.Background(), Request{
		Endpoint:  srv.URL,
		Payload:   map[string]any{"message": "hi"},
		KeyPrefix: "call-1",
		Timeout:   time.Second,
	})

	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Err)
	}
	output, err := ChatReply(result.Raw)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if output != "hello" {
		t.Fatalf("expected output hello, got %q", output)
	}
	if n := c.Inflight(); n != 0 {
		t.Fatalf("expected empty registry after settlement, got %d", n)
	}
}

func TestExecuteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no route"))
	}))
	defer srv.Close()

	c := NewClient("")
	result := c.Execute(context.Background(), Request{
		Endpoint: srv.URL, Payload: map[string]any{"a": 1}, KeyPrefix: "call-1", Timeout: time.Second,
	})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindHTTP {
		t.Fatalf("expected http_error, got %s", result.Err.Kind)
	}
	if result.Err.Message != "API error: 404 Not Found" {
		t.Fatalf("unexpected message: %q", result.Err.Message)
	}
	if result.Err.Status != 404 || result.Err.StatusText != "Not Found" {
		t.Fatalf("unexpected status capture: %d %q", result.Err.Status, result.Err.StatusText)
	}
	if result.Err.Body != "no route" {
		t.Fatalf("expected captured body, got %q", result.Err.Body)
	}
}

func TestExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient("")
	result := c.Execute(context.Background(), Request{
		Endpoint: srv.URL, Payload: map[string]any{"a": 1}, KeyPrefix: "call-1", Timeout: 50 * time.Millisecond,
	})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %s", result.Err.Kind)
	}
	if result.Err.Message != "Connection timed out" {
		t.Fatalf("unexpected message: %q", result.Err.Message)
	}
	if n := c.Inflight(); n != 0 {
		t.Fatalf("expected empty registry after timeout, got %d", n)
	}
}

func TestExecuteNetworkError(t *testing.T) {
	c := NewClient("")
	result := c.Execute(context.Background(), Request{
		Endpoint: "http://127.0.0.1:1", Payload: map[string]any{}, KeyPrefix: "call-1", Timeout: time.Second,
	})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindNetwork {
		t.Fatalf("expected network_error, got %s", result.Err.Kind)
	}
}

func TestExecuteMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient("")
	result := c.Execute(context.Background(), Request{
		Endpoint: srv.URL, Payload: map[string]any{}, KeyPrefix: "call-1", Timeout: time.Second,
	})

	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindUnknown {
		t.Fatalf("expected unknown_error, got %s", result.Err.Kind)
	}
}

func TestCancelAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only watches for client disconnects once the request
		// body has been consumed; without this read, r.Context() is never
		// cancelled and srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient("")
	done := make(chan Result, 1)
	go func() {
		done <- c.Execute(context.Background(), Request{
			Endpoint: srv.URL, Payload: map[string]any{}, KeyPrefix: "call-1", Timeout: 10 * time.Second,
		})
	}()

	waitForInflight(t, c, 1)

	if n := c.CancelAll(); n != 1 {
		t.Fatalf("expected 1 cancelled call, got %d", n)
	}

	result := <-done
	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindUserCancelled {
		t.Fatalf("expected user_cancelled, got %s", result.Err.Kind)
	}
	if result.Err.Message != "Request cancelled by user" {
		t.Fatalf("unexpected message: %q", result.Err.Message)
	}
	if n := c.Inflight(); n != 0 {
		t.Fatalf("expected empty registry after cancellation, got %d", n)
	}
}

func TestCancelAllDoesNotAffectLaterCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":"still here"}`))
	}))
	defer srv.Close()

	c := NewClient("")
	if n := c.CancelAll(); n != 0 {
		t.Fatalf("expected 0 cancelled with nothing in flight, got %d", n)
	}

	result := c.Execute(context.Background(), Request{
		Endpoint: srv.URL, Payload: map[string]any{}, KeyPrefix: "call-2", Timeout: time.Second,
	})
	if !result.OK() {
		t.Fatalf("call issued after CancelAll should succeed, got %v", result.Err)
	}
}

func TestDeregisterIdempotent(t *testing.T) {
	c := NewClient("")
	_, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	c.register("call-x", cancel)

	c.deregister("call-x")
	c.deregister("call-x")

	if n := c.Inflight(); n != 0 {
		t.Fatalf("expected 0 in flight, got %d", n)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  CallError
		want bool
	}{
		{CallError{Kind: KindTimeout}, true},
		{CallError{Kind: KindNetwork}, true},
		{CallError{Kind: KindHTTP, Status: 503}, true},
		{CallError{Kind: KindHTTP, Status: 404}, false},
		{CallError{Kind: KindUserCancelled}, false},
		{CallError{Kind: KindUnknown}, false},
	}

	for _, tc := range cases {
		if got := tc.err.Retryable(); got != tc.want {
			t.Errorf("Retryable(%s/%d) = %v, want %v", tc.err.Kind, tc.err.Status, got, tc.want)
		}
	}
}

func waitForInflight(t *testing.T, c *Client, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Inflight() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d in-flight calls, have %d", want, c.Inflight())
}
