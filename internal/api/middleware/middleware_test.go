package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_EmptyKeyDisablesCheck(t *testing.T) {
	h := APIKeyAuth("")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with no key configured, got %d", rr.Code)
	}
}

func TestAPIKeyAuth_RejectsWrongKey(t *testing.T) {
	h := APIKeyAuth("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", rr.Code)
	}
}

func TestAPIKeyAuth_RejectsMissingKey(t *testing.T) {
	h := APIKeyAuth("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing key, got %d", rr.Code)
	}
}

func TestAPIKeyAuth_AcceptsMatchingKey(t *testing.T) {
	h := APIKeyAuth("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for matching key, got %d", rr.Code)
	}
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var fromCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	echoed := rr.Header().Get(RequestIDHeader)
	if echoed == "" {
		t.Fatal("expected a generated request id on the response")
	}
	if fromCtx != echoed {
		t.Fatalf("context id %q does not match response header %q", fromCtx, echoed)
	}
}

func TestRequestID_PreservesCallerID(t *testing.T) {
	h := RequestID(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "caller-id-1" {
		t.Fatalf("expected caller's request id echoed, got %q", got)
	}
}

func TestRateLimiter_EnforcesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("client") {
		t.Fatal("first request should pass")
	}
	if !rl.Allow("client") {
		t.Fatal("second request should pass within burst")
	}
	if rl.Allow("client") {
		t.Fatal("third request should exceed the burst")
	}
	// A different client has its own budget.
	if !rl.Allow("other") {
		t.Fatal("unrelated client should not share the budget")
	}
}

func TestRateLimiter_CleanupEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("stale")

	rl.Cleanup(0)

	rl.mu.Lock()
	_, exists := rl.clients["stale"]
	rl.mu.Unlock()
	if exists {
		t.Fatal("expected idle client to be evicted")
	}
}

func TestRateLimiter_CleanupKeepsActive(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("active")

	rl.Cleanup(time.Hour)

	rl.mu.Lock()
	_, exists := rl.clients["active"]
	rl.mu.Unlock()
	if !exists {
		t.Fatal("expected recently seen client to survive cleanup")
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	h := RateLimit(1, 1)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header on 429")
	}
}

func TestMetricsCollector_Counts(t *testing.T) {
	mc := NewMetricsCollector()
	ok := mc.Middleware(okHandler())
	fail := mc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ok.ServeHTTP(httptest.NewRecorder(), req)
	ok.ServeHTTP(httptest.NewRecorder(), req)
	fail.ServeHTTP(httptest.NewRecorder(), req)

	snap := mc.Snapshot()
	if snap.Requests != 3 {
		t.Fatalf("expected 3 requests, got %d", snap.Requests)
	}
	if snap.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", snap.Errors)
	}
	if snap.Inflight != 0 {
		t.Fatalf("expected no in-flight requests after completion, got %d", snap.Inflight)
	}
}
