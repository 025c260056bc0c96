package planner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/liamcoop/mealplan/catalog"
)

// Metrics records plan outcomes. A nil *Metrics records nothing.
type Metrics struct {
	plans         *prometheus.CounterVec
	solveDuration prometheus.Histogram
	candidates    prometheus.Histogram
}

// NewMetrics registers the planner collectors with reg. When cache is not nil
// its hit and miss counts are exported as well.
func NewMetrics(reg prometheus.Registerer, cache *catalog.Cache) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		plans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealplan",
			Name:      "plans_total",
			Help:      "Meal plan requests by outcome.",
		}, []string{"outcome"}),
		solveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mealplan",
			Name:      "solve_duration_seconds",
			Help:      "Time spent in the linear program solver.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mealplan",
			Name:      "candidate_foods",
			Help:      "Foods left for the solver after exclusions and filters.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	if cache != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "mealplan",
			Name:      "catalog_cache_hits_total",
			Help:      "Catalog loads served from the cache.",
		}, func() float64 { return float64(cache.Hits()) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "mealplan",
			Name:      "catalog_cache_misses_total",
			Help:      "Catalog loads that read the source.",
		}, func() float64 { return float64(cache.Misses()) })
	}

	return m
}

func (m *Metrics) observePlan(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
	}
	m.plans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSolve(d time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.Observe(d.Seconds())
}

func (m *Metrics) observeCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Observe(float64(n))
}
