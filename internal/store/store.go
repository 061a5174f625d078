// Package store persists the exam collection under a single key of a
// key-value backend.
package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pavelanni/gradetrack/internal/metrics"
	"github.com/pavelanni/gradetrack/internal/model"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "grade-track:exams"

// Backend is a durable key-value store.
type Backend interface {
	// Get returns the value for key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Adapter loads and saves the whole exam collection as one JSON array.
// Neither operation reports failure to the caller.
type Adapter struct {
	backend Backend
	key     string
	metrics *metrics.Recorder
}

// NewAdapter creates an adapter over b. An empty key selects DefaultKey.
func NewAdapter(b Backend, key string, m *metrics.Recorder) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{backend: b, key: key, metrics: m}
}

// Key returns the key the collection is stored under.
func (a *Adapter) Key() string {
	return a.key
}

// Load returns the stored collection. A missing key, a backend error or a
// value that is not a JSON array of exams all yield an empty collection.
func (a *Adapter) Load(ctx context.Context) []model.Exam {
	raw, ok, err := a.backend.Get(ctx, a.key)
	if err != nil {
		slog.Warn("failed to read exams, starting empty", "key", a.key, "error", err)
		a.metrics.LoadFallback("backend")
		return []model.Exam{}
	}
	if !ok || len(raw) == 0 {
		a.metrics.LoadFallback("missing")
		return []model.Exam{}
	}

	var exams []model.Exam
	if err := json.Unmarshal(raw, &exams); err != nil {
		slog.Warn("stored exams are malformed, ignoring", "key", a.key, "error", err)
		a.metrics.LoadFallback("malformed")
		return []model.Exam{}
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams
}

// Save overwrites the stored collection with exams. Failures are logged and dropped.
func (a *Adapter) Save(ctx context.Context, exams []model.Exam) {
	if exams == nil {
		exams = []model.Exam{}
	}
	data, err := json.Marshal(exams)
	if err != nil {
		slog.Warn("failed to encode exams, keeping in-memory state", "error", err)
		a.metrics.PersistFailure()
		return
	}
	if err := a.backend.Set(ctx, a.key, data); err != nil {
		slog.Warn("failed to save exams, keeping in-memory state", "key", a.key, "error", err)
		a.metrics.PersistFailure()
		return
	}
	slog.Debug("saved exams", "key", a.key, "count", len(exams))
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
