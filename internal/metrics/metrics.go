// Package metrics exposes prometheus instrumentation for the exam store.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder holds the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	mutations       *prometheus.CounterVec
	records         prometheus.Gauge
	persistFailures prometheus.Counter
	loadFallbacks   *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradetrack",
			Name:      "mutations_total",
			Help:      "Record store mutations by operation.",
		}, []string{"op"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gradetrack",
			Name:      "exams",
			Help:      "Number of exams currently held in memory.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gradetrack",
			Name:      "persist_failures_total",
			Help:      "Saves that failed and were dropped.",
		}),
		loadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradetrack",
			Name:      "load_fallbacks_total",
			Help:      "Loads that yielded no usable data, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.mutations, r.records, r.persistFailures, r.loadFallbacks)
	return r
}

// Mutation counts one store mutation and records the resulting collection size.
func (r *Recorder) Mutation(op string, size int) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op).Inc()
	r.records.Set(float64(size))
}

// Size records the collection size without counting a mutation.
func (r *Recorder) Size(size int) {
	if r == nil {
		return
	}
	r.records.Set(float64(size))
}

// PersistFailure counts a dropped save.
func (r *Recorder) PersistFailure() {
	if r == nil {
		return
	}
	r.persistFailures.Inc()
}

// LoadFallback counts a load that was treated as "no data".
func (r *Recorder) LoadFallback(reason string) {
	if r == nil {
		return
	}
	r.loadFallbacks.WithLabelValues(reason).Inc()
}
