package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the store's instruments on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	MutationsTotal        prometheus.Counter
	SaveErrorsTotal       prometheus.Counter
	CorruptRecoveredTotal prometheus.Counter
	ListenerErrorsTotal   prometheus.Counter
	BackupsTotal          prometheus.Counter
	RestoresTotal         prometheus.Counter
	ChangelogAppended     prometheus.Counter
	SaveLatencySec        prometheus.Histogram
	ItemsInCart           prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	mutations := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_mutations_total"})
	saveErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_save_errors_total"})
	corrupt := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_corrupt_recovered_total"})
	listenerErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_listener_errors_total"})
	backups := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_backups_total"})
	restores := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_restores_total"})
	changelogAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "cart_changelog_appended_total"})
	saveLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_save_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	items := prometheus.NewGauge(prometheus.GaugeOpts{Name: "cart_items"})

	r.MustRegister(mutations, saveErrors, corrupt, listenerErrors, backups, restores, changelogAppended, saveLatency, items)
	return &Registry{
		reg:                   r,
		MutationsTotal:        mutations,
		SaveErrorsTotal:       saveErrors,
		CorruptRecoveredTotal: corrupt,
		ListenerErrorsTotal:   listenerErrors,
		BackupsTotal:          backups,
		RestoresTotal:         restores,
		ChangelogAppended:     changelogAppended,
		SaveLatencySec:        saveLatency,
		ItemsInCart:           items,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
