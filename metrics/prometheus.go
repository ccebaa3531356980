package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "obsim"

type promRecorder struct {
	searchTotal   *prom.CounterVec
	searchSeconds *prom.HistogramVec
	corpusSize    *prom.HistogramVec
	skipped       *prom.CounterVec
	allocations   *prom.CounterVec
}

func (p *promRecorder) IncSearchTotal(endpoint string, success bool) {
	p.searchTotal.WithLabelValues(endpoint, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveSearchSeconds(endpoint string, success bool, seconds float64) {
	p.searchSeconds.WithLabelValues(endpoint, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) ObserveCorpusSize(endpoint string, size int) {
	p.corpusSize.WithLabelValues(endpoint).Observe(float64(size))
}

func (p *promRecorder) AddSkipped(endpoint string, n int) {
	p.skipped.WithLabelValues(endpoint).Add(float64(n))
}

func (p *promRecorder) IncAllocationLookup(success bool) {
	p.allocations.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// EnablePrometheus installs a Prometheus recorder on a fresh registry and
// returns the handler exposing it.
func EnablePrometheus() http.Handler {
	registry := prom.NewRegistry()
	p := &promRecorder{
		searchTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of similarity search requests",
		}, []string{"endpoint", "success"}),
		searchSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "search_seconds",
			Help:      "Similarity search duration in seconds",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint", "success"}),
		corpusSize: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_size",
			Help:      "Number of breakdowns ranked per search",
			Buckets:   prom.ExponentialBuckets(1, 4, 8),
		}, []string{"endpoint"}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Total number of corpus records that could not be scored",
		}, []string{"endpoint"}),
		allocations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_lookups_total",
			Help:      "Total number of allocation lookups",
		}, []string{"success"}),
	}

	registry.MustRegister(p.searchTotal, p.searchSeconds, p.corpusSize, p.skipped, p.allocations)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
