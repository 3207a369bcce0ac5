// Package metrics exports compile and RPC counters in the Prometheus text
// format. A CLI run is short lived, so metrics are written to a textfile for
// a node exporter to pick up rather than served over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/transport"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// WriteFile writes every metric in reg to path in the text exposition
// format. The file is replaced atomically.
func WriteFile(path string, reg *prometheus.Registry) error {
	return prometheus.WriteToTextfile(path, reg)
}

// CompileObserver counts compiled documents and pipeline failures.
type CompileObserver struct {
	compiledTotal *prometheus.CounterVec
	failedTotal   *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewCompileObserver registers compile metrics on the registry.
func NewCompileObserver(reg *prometheus.Registry) *CompileObserver {
	o := &CompileObserver{
		compiledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgo_idl_compiled_total",
			Help: "IDL documents compiled, by dialect.",
		}, []string{"origin"}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgo_idl_failed_total",
			Help: "IDL documents rejected, by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorgo_idl_compile_seconds",
			Help:    "Time to compile one IDL document.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}
	reg.MustRegister(o.compiledTotal, o.failedTotal, o.duration)
	return o
}

func (o *CompileObserver) Compiled(origin ir.Origin, d time.Duration) {
	o.compiledTotal.WithLabelValues(string(origin)).Inc()
	o.duration.Observe(d.Seconds())
}

func (o *CompileObserver) Failed(kind ir.ErrorKind) {
	if kind == "" {
		kind = "Unknown"
	}
	o.failedTotal.WithLabelValues(string(kind)).Inc()
}

// FetchObserver counts RPC account reads.
type FetchObserver struct {
	fetchTotal *prometheus.CounterVec
	latency    prometheus.Histogram
}

// NewFetchObserver registers RPC metrics on the registry.
func NewFetchObserver(reg *prometheus.Registry) *FetchObserver {
	o := &FetchObserver{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgo_rpc_account_fetch_total",
			Help: "getAccountInfo calls, by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorgo_rpc_account_fetch_seconds",
			Help:    "getAccountInfo round trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(o.fetchTotal, o.latency)
	return o
}

func (o *FetchObserver) Fetch(result transport.FetchResult, d time.Duration) {
	o.fetchTotal.WithLabelValues(string(result)).Inc()
	o.latency.Observe(d.Seconds())
}
