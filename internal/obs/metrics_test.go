package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                       "/",
		"/metrics":               "/metrics",
		"/groups/12/":            "/groups/:id/",
		"/groups/12/requests/":   "/groups/:id/requests/",
		"/requests/7/":           "/requests/:id/",
		"/users/abc123/":         "/users/:net_id/",
		"/users/4/events/":       "/users/:id/events/",
		"/groups/?course_code=X": "/groups/",
		"/events/9/join/":        "/events/:id/join/",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsRequests(t *testing.T) {
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodPost, "/groups/:id/events/", "201"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/groups/3/events/", nil))
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodPost, "/groups/:id/events/", "201"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestErrorLogIncludesLevelAndError(t *testing.T) {
	l := Logger()
	orig := l.Writer()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	defer l.SetOutput(orig)

	Error("store failure", errors.New("boom"), map[string]any{"op": "create_group"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["level"] != "error" || entry["error"] != "boom" || entry["op"] != "create_group" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetBuildInfoKeepsOneSeries(t *testing.T) {
	SetBuildInfo("0.1.0", "abc")
	SetBuildInfo("0.2.0", "def")

	ch := make(chan prometheus.Metric, 4)
	buildInfo.Collect(ch)
	close(ch)

	var series []*dto.Metric
	for m := range ch {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		series = append(series, &out)
	}
	if len(series) != 1 {
		t.Fatalf("expected one series, got %d", len(series))
	}
	labels := map[string]string{}
	for _, lp := range series[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["version"] != "0.2.0" || labels["commit"] != "def" || labels["go_version"] == "" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}
