// Package exams holds the authoritative in-memory exam collection and the
// filtered view derived from it.
package exams

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/gradetrack/internal/metrics"
	"github.com/pavelanni/gradetrack/internal/model"
)

// Persister loads and saves the full collection. Both operations fail soft.
type Persister interface {
	Load(ctx context.Context) []model.Exam
	Save(ctx context.Context, exams []model.Exam)
}

// Store owns the exam collection and the current filter criteria.
// Every mutation replaces the collection as a whole and saves it.
type Store struct {
	persist Persister
	now     func() time.Time
	newID   func() string
	seed    []model.Exam
	metrics *metrics.Recorder

	mu      sync.RWMutex
	exams   []model.Exam
	filters model.Filters
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for creation dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSeed replaces the collection used when persistence yields nothing.
// A nil seed leaves the store empty.
func WithSeed(seed []model.Exam) Option {
	return func(s *Store) { s.seed = seed }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithMetrics records mutations on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store saving through p. Call Initialize before use.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		now:     time.Now,
		newID:   NewID,
		seed:    Seed(),
		exams:   []model.Exam{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh exam identifier.
func NewID() string {
	return "exam_" + uuid.NewString()
}

// Initialize loads the stored collection, falling back to the seed
// collection (which is then saved) when nothing usable is stored.
func (s *Store) Initialize(ctx context.Context) []model.Exam {
	loaded := s.persist.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(loaded) == 0 && len(s.seed) > 0 {
		slog.Info("no stored exams, using seed collection", "count", len(s.seed))
		loaded = slices.Clone(s.seed)
		s.persist.Save(ctx, loaded)
	}
	if loaded == nil {
		loaded = []model.Exam{}
	}
	s.exams = loaded
	s.metrics.Size(len(loaded))
	slog.Info("exams loaded", "count", len(loaded))
	return slices.Clone(loaded)
}

// Exams returns a copy of the full collection, newest first.
func (s *Store) Exams() []model.Exam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.exams)
}

// Get returns the exam with the given id.
func (s *Store) Get(id string) (model.Exam, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Exam{}, false
	}
	return s.exams[i], true
}

// Create adds a new exam built from d at the front of the collection.
// d.ID and d.DateCreated are ignored.
func (s *Store) Create(ctx context.Context, d model.Draft) model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.indexOf(id) >= 0 {
		id = s.newID()
	}
	e := fromDraft(d)
	e.ID = id
	e.DateCreated = s.now().Format(model.DateLayout)

	next := make([]model.Exam, 0, len(s.exams)+1)
	next = append(next, e)
	next = append(next, s.exams...)
	s.commit(ctx, "create", next)

	slog.Info("created exam", "id", e.ID, "title", e.Title, "course", e.Course)
	return e
}

// Update replaces every field of the exam with the given id by the fields
// of d, keeping its id and creation date. It reports whether the exam existed.
func (s *Store) Update(ctx context.Context, id string, d model.Draft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.Debug("update of unknown exam ignored", "id", id)
		return false
	}
	e := fromDraft(d)
	e.ID = s.exams[i].ID
	e.DateCreated = s.exams[i].DateCreated

	next := slices.Clone(s.exams)
	next[i] = e
	s.commit(ctx, "update", next)

	slog.Info("updated exam", "id", id)
	return true
}

// Delete removes the exam with the given id. It reports whether the exam existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.Debug("delete of unknown exam ignored", "id", id)
		return false
	}
	next := make([]model.Exam, 0, len(s.exams)-1)
	next = append(next, s.exams[:i]...)
	next = append(next, s.exams[i+1:]...)
	s.commit(ctx, "delete", next)

	slog.Info("deleted exam", "id", id)
	return true
}

// Filters returns the current filter criteria.
func (s *Store) Filters() model.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetFilters merges p into the current filter criteria.
func (s *Store) SetFilters(p model.FilterPatch) model.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = p.Apply(s.filters)
	return s.filters
}

// Filtered returns the collection narrowed by the current filter criteria.
func (s *Store) Filtered() []model.Exam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.exams, s.filters)
}

// Subjects returns the distinct courses in the collection, sorted.
func (s *Store) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subjects := make([]string, 0, len(s.exams))
	for _, e := range s.exams {
		subjects = append(subjects, e.Course)
	}
	slices.Sort(subjects)
	return slices.Compact(subjects)
}

// WriteExport writes the collection as an indented JSON array.
func (s *Store) WriteExport(w io.Writer) error {
	data, err := json.MarshalIndent(s.Exams(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// commit swaps in next and saves it. Callers hold the write lock.
func (s *Store) commit(ctx context.Context, op string, next []model.Exam) {
	s.exams = next
	s.persist.Save(ctx, next)
	s.metrics.Mutation(op, len(next))
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.exams, func(e model.Exam) bool { return e.ID == id })
}

func fromDraft(d model.Draft) model.Exam {
	return model.Exam{
		Title:            d.Title,
		Year:             d.Year,
		DateDue:          d.DateDue,
		Weight:           d.Weight,
		MaxPoints:        d.MaxPoints,
		PassingThreshold: d.PassingThreshold,
		Status:           d.Status,
		Course:           d.Course,
		Description:      d.Description,
		Visible:          d.Visible,
	}
}
