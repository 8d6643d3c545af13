// Package metrics holds the Prometheus collectors of the refresh pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "monumentd"

var RefreshCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "refresh",
	Name:      "cycles_total",
	Help:      "Refresh cycles by outcome.",
}, []string{"result"})

var RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "refresh",
	Name:      "duration_seconds",
	Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
})

var RecordsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "refresh",
	Name:      "records_skipped_total",
	Help:      "Source records dropped while decoding or converting.",
})

var FacetValuesAdded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "facets",
	Name:      "values_added_total",
}, []string{"dimension"})

var ImageFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "images",
	Name:      "fetches_total",
	Help:      "Image downloads by outcome (stored, absent, failed).",
}, []string{"outcome"})

var StoreRecords = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "records",
	Help:      "Records in the served snapshot.",
})

// Collectors lists everything to register with a prometheus.Registerer.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RefreshCycles,
		RefreshDuration,
		RecordsSkipped,
		FacetValuesAdded,
		ImageFetches,
		StoreRecords,
	}
}
