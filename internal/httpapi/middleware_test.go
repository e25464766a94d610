package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/ids"
	"studyhall.org/internal/obs"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitIsPerClientAndReportsJSON(t *testing.T) {
	handler := RequestID(RateLimit(okHandler(), 1, 1, ClientIP(nil)))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/groups/", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := call("10.0.0.1:1234"); rr.Code != http.StatusOK {
		t.Fatalf("first call = %d, want 200", rr.Code)
	}
	if rr := call("10.0.0.2:1234"); rr.Code != http.StatusOK {
		t.Fatalf("other client = %d, want its own bucket", rr.Code)
	}
	rr := call("10.0.0.1:5555")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second call = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	if body["request_id"] != rr.Header().Get(requestIDHeader) {
		t.Fatalf("request_id %v does not match header %q", body["request_id"], rr.Header().Get(requestIDHeader))
	}
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	handler := RateLimit(okHandler(), 1, 1, ClientIP(nil))
	for i, xff := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if i > 0 && rr.Code != http.StatusTooManyRequests {
			t.Fatalf("call %d with X-Forwarded-For %s = %d, want 429", i, xff, rr.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"no proxy", "198.51.100.9:4000", "", "198.51.100.9"},
		{"untrusted peer", "198.51.100.9:4000", "203.0.113.5", "198.51.100.9"},
		{"trusted peer", "10.1.2.3:4000", "203.0.113.5", "203.0.113.5"},
		{"spoofed left hop", "10.1.2.3:4000", "1.2.3.4, 203.0.113.5", "203.0.113.5"},
		{"chained proxies", "10.1.2.3:4000", "203.0.113.5, 10.9.9.9", "203.0.113.5"},
		{"trusted peer no header", "10.1.2.3:4000", "", "10.1.2.3"},
		{"garbage header", "10.1.2.3:4000", "nonsense", "10.1.2.3"},
	}
	resolve := ClientIP(trusted)
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if got := resolve(req); got != tc.want {
			t.Fatalf("%s: clientIP = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLimiterSetSweepsIdleBuckets(t *testing.T) {
	start := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	set := &limiterSet{
		buckets:   make(map[string]*bucket),
		burst:     1,
		perSecond: 1,
		ttl:       time.Minute,
		lastSweep: start,
	}
	set.get("idle", start)
	set.get("busy", start)
	set.get("busy", start.Add(50*time.Second))

	set.get("busy", start.Add(90*time.Second))
	if _, ok := set.buckets["idle"]; ok {
		t.Fatal("idle bucket should have been swept")
	}
	if _, ok := set.buckets["busy"]; !ok {
		t.Fatal("busy bucket should survive the sweep")
	}
}

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestIDFromContext(r.Context())
	}))

	inbound := ids.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, inbound)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != inbound || rr.Header().Get(requestIDHeader) != inbound {
		t.Fatalf("valid inbound id not reused: ctx=%q header=%q", seen, rr.Header().Get(requestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "../../etc/passwd")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen == "../../etc/passwd" || !ids.Valid(seen) {
		t.Fatalf("malformed inbound id should be replaced, got %q", seen)
	}
}

func TestLoggingJSONEmitsStructuredEntry(t *testing.T) {
	logger := obs.Logger()
	origWriter := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(origWriter)

	handler := RequestID(LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), ClientIP(nil)))

	req := httptest.NewRequest(http.MethodPost, "/groups/3/events/", nil)
	req.Header.Set("User-Agent", "middleware-test")
	req.RemoteAddr = "127.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v (%q)", err, line)
	}
	if entry["msg"] != "request_complete" || entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != rr.Header().Get(requestIDHeader) {
		t.Fatalf("request_id %v does not match response header", entry["request_id"])
	}
	if entry["remote_ip"] != "127.0.0.1" || entry["user_agent"] != "middleware-test" {
		t.Fatalf("unexpected client fields: %v", entry)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Fatal("missing duration_ms")
	}
}
