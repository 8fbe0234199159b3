package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestServeHTTP_Counters(t *testing.T) {
	r := New()
	r.CycleStarted()
	r.CycleStarted()
	r.CycleFailed()
	r.RequestMade()
	r.RequestMade()
	r.RequestMade()
	r.RequestFailed()

	body := scrape(t, r)

	// Round-trip through the text parser rather than string-matching lines.
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	want := map[string]float64{
		"shelfwatch_status_cycles_total":            2,
		"shelfwatch_status_cycle_failures_total":    1,
		"shelfwatch_upstream_requests_total":        3,
		"shelfwatch_upstream_request_failures_total": 1,
	}
	for name, value := range want {
		mf, ok := mfs[name]
		if !ok {
			t.Errorf("family %s missing", name)
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != value {
			t.Errorf("%s: got %v, want %v", name, got, value)
		}
	}
}

func TestServeHTTP_ClientGauge(t *testing.T) {
	r := New()

	// No gauge until the hub installs one.
	if body := scrape(t, r); strings.Contains(body, "shelfwatch_ws_clients") {
		t.Error("client gauge exposed before SetClientGauge")
	}

	r.SetClientGauge(func() int { return 4 })
	body := scrape(t, r)

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	mf, ok := mfs["shelfwatch_ws_clients"]
	if !ok {
		t.Fatal("shelfwatch_ws_clients missing")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Errorf("gauge: got %v, want 4", got)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}
