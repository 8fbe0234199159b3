package metrics

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Registry holds the process counters. All methods are safe for concurrent
// use; HTTP handlers and the push hub increment them from their own
// goroutines.
type Registry struct {
	cycles          atomic.Uint64
	cycleFailures   atomic.Uint64
	requests        atomic.Uint64
	requestFailures atomic.Uint64

	// wsClients reports the current WebSocket client count. Installed by the
	// hub; nil until then.
	wsClients atomic.Pointer[func() int]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// CycleStarted records the start of one status collection cycle.
func (r *Registry) CycleStarted() { r.cycles.Add(1) }

// CycleFailed records a collection cycle that ended in an error.
func (r *Registry) CycleFailed() { r.cycleFailures.Add(1) }

// RequestMade records one upstream GraphQL call (each retry attempt counts).
func (r *Registry) RequestMade() { r.requests.Add(1) }

// RequestFailed records one failed upstream GraphQL call.
func (r *Registry) RequestFailed() { r.requestFailures.Add(1) }

// Requests returns the upstream call count so far.
func (r *Registry) Requests() uint64 { return r.requests.Load() }

// SetClientGauge installs the WebSocket client count source.
func (r *Registry) SetClientGauge(fn func() int) {
	r.wsClients.Store(&fn)
}

// families assembles the current counter values as metric families.
func (r *Registry) families() []*dto.MetricFamily {
	counter := func(name, help string, v uint64) *dto.MetricFamily {
		return &dto.MetricFamily{
			Name:   proto.String(name),
			Help:   proto.String(help),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(float64(v))}}},
		}
	}

	fams := []*dto.MetricFamily{
		counter("shelfwatch_status_cycles_total",
			"Status collection cycles started.", r.cycles.Load()),
		counter("shelfwatch_status_cycle_failures_total",
			"Status collection cycles that ended in an error.", r.cycleFailures.Load()),
		counter("shelfwatch_upstream_requests_total",
			"GraphQL calls made to the upstream service, including retries.", r.requests.Load()),
		counter("shelfwatch_upstream_request_failures_total",
			"GraphQL calls that failed.", r.requestFailures.Load()),
	}

	if fn := r.wsClients.Load(); fn != nil {
		fams = append(fams, &dto.MetricFamily{
			Name:   proto.String("shelfwatch_ws_clients"),
			Help:   proto.String("Currently connected WebSocket clients."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(float64((*fn)()))}}},
		})
	}

	return fams
}

// ServeHTTP writes the current counters in Prometheus text format.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.families() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode family", "name", mf.GetName(), "err", err)
			return
		}
	}
}
