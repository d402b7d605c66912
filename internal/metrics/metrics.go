package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// Drop reasons recorded by RowsDropped
const (
	ReasonMissing      = "missing_field"
	ReasonSentinelYear = "sentinel_year"
	ReasonDuplicate    = "duplicate_case"
	ReasonUnmatched    = "unmatched_area"
)

// Metrics holds the pipeline and cache collectors on their own registry
type Metrics struct {
	Registry *prometheus.Registry

	RowsIngested    prometheus.Counter
	RowsDropped     *prometheus.CounterVec
	RowsRetained    prometheus.Gauge
	Areas           prometheus.Gauge
	CacheLookups    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RefreshFailures prometheus.Counter
	DerivationTime  *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RowsIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "crime_eda_rows_ingested_total", Help: "Incident rows read from the source.",
		}),
		RowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crime_eda_rows_dropped_total", Help: "Incident rows removed by cleaning or joins, by reason.",
		}, []string{"reason"}),
		RowsRetained: f.NewGauge(prometheus.GaugeOpts{
			Name: "crime_eda_rows_retained", Help: "Incident rows in the current cleaned table.",
		}),
		Areas: f.NewGauge(prometheus.GaugeOpts{
			Name: "crime_eda_areas", Help: "Community areas in the current polygon table.",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crime_eda_cache_lookups_total", Help: "Memoized derivation lookups, by result.",
		}, []string{"result"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crime_eda_refresh_duration_seconds",
			Help:    "Time to load, normalize and clean the dataset.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		RefreshFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "crime_eda_refresh_failures_total", Help: "Dataset refreshes that failed.",
		}),
		DerivationTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crime_eda_derivation_duration_seconds",
			Help:    "Time to compute one derivation on a cache miss.",
			Buckets: prometheus.DefBuckets,
		}, []string{"derivation"}),
	}
}

// ObserveClean records the outcome of a normalize and clean pass
func (m *Metrics) ObserveClean(normalize models.NormalizeReport, clean models.CleanReport) {
	m.RowsIngested.Add(float64(normalize.RowsRead))
	m.RowsDropped.WithLabelValues(ReasonMissing).Add(float64(clean.DroppedMissing))
	m.RowsDropped.WithLabelValues(ReasonSentinelYear).Add(float64(clean.DroppedSentinelYear))
	m.RowsDropped.WithLabelValues(ReasonDuplicate).Add(float64(clean.DroppedDuplicates))
	m.RowsRetained.Set(float64(clean.OutputRows))
}

// ObserveCache counts a memo hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveDerivation records the compute time of a derivation
func (m *Metrics) ObserveDerivation(name string, d time.Duration) {
	m.DerivationTime.WithLabelValues(name).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
