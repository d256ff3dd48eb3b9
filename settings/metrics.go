package settings

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WatcherMetrics holds Prometheus metrics for a settings reload watcher.
type WatcherMetrics struct {
	ReloadsTotal      prometheus.Counter // successful reloads, including the initial load
	ReloadErrorsTotal prometheus.Counter // reloads rejected because the documents failed to load
	LastReloadTime    prometheus.Gauge   // unix timestamp of the last successful reload
}

// NewWatcherMetrics creates and registers watcher metrics. The registerer
// parameter allows flexible registration (global registry, test registry).
// The document label distinguishes watchers over different files.
func NewWatcherMetrics(reg prometheus.Registerer, document string) *WatcherMetrics {
	labels := prometheus.Labels{"document": document}

	reloadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "layered_settings_reloads_total",
		Help:        "Total number of successful settings reloads",
		ConstLabels: labels,
	})
	reloadErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "layered_settings_reload_errors_total",
		Help:        "Total number of settings reloads rejected due to load errors",
		ConstLabels: labels,
	})
	lastReloadTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "layered_settings_last_reload_timestamp_seconds",
		Help:        "Unix timestamp of the last successful settings reload",
		ConstLabels: labels,
	})

	reg.MustRegister(reloadsTotal)
	reg.MustRegister(reloadErrorsTotal)
	reg.MustRegister(lastReloadTime)

	return &WatcherMetrics{
		ReloadsTotal:      reloadsTotal,
		ReloadErrorsTotal: reloadErrorsTotal,
		LastReloadTime:    lastReloadTime,
	}
}
