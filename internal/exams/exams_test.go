package exams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/gradetrack/internal/model"
	"github.com/pavelanni/gradetrack/internal/store"
)

var fixedNow = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *store.Adapter, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	a := store.NewAdapter(mem, "", nil)
	t.Cleanup(func() { a.Close() })
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := New(a, opts...)
	s.Initialize(context.Background())
	return s, a, mem
}

func testDraft(title string) model.Draft {
	return model.Draft{
		Title:            title,
		Year:             "YR 1",
		DateDue:          "March 20, 2026",
		Weight:           "20%",
		MaxPoints:        50,
		PassingThreshold: 60,
		Status:           model.StatusNotAttempted,
		Course:           "Mathematics",
		Description:      "chapters 1-3",
		Visible:          true,
	}
}

func TestInitializeFallsBackToSeed(t *testing.T) {
	s, a, _ := newTestStore(t)

	got := s.Exams()
	if len(got) != len(Seed()) {
		t.Fatalf("expected %d seed exams, got %d", len(Seed()), len(got))
	}
	if got[0].ID != "1" {
		t.Errorf("expected seed order preserved, first id %q", got[0].ID)
	}

	// The seed is written back so the next start loads it.
	if stored := a.Load(context.Background()); len(stored) != len(Seed()) {
		t.Errorf("expected seed to be saved, stored %d exams", len(stored))
	}
}

func TestInitializeMalformedPayload(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.Set(ctx, store.DefaultKey, []byte(`{"id":"exam_1","title":"Not a list"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s := New(store.NewAdapter(mem, "", nil))
	got := s.Initialize(ctx)
	if !reflect.DeepEqual(got, Seed()) {
		t.Errorf("expected seed collection, got %d exams", len(got))
	}
}

func TestInitializeLoadsStored(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	a := store.NewAdapter(mem, "", nil)
	stored := Seed()[:2]
	a.Save(ctx, stored)

	s := New(a)
	if got := s.Initialize(ctx); !reflect.DeepEqual(got, stored) {
		t.Errorf("expected stored exams, got %+v", got)
	}
}

func TestCreateOnEmptyStore(t *testing.T) {
	s, a, _ := newTestStore(t, WithSeed(nil))
	if n := len(s.Exams()); n != 0 {
		t.Fatalf("expected empty store, got %d exams", n)
	}

	created := s.Create(context.Background(), testDraft("Quiz 1"))

	loaded := a.Load(context.Background())
	if len(loaded) != 1 {
		t.Fatalf("expected 1 stored exam, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID == "" {
		t.Error("expected generated id")
	}
	if !strings.HasPrefix(got.ID, "exam_") {
		t.Errorf("expected exam_ prefix, got %q", got.ID)
	}
	if got.DateCreated != "March 05, 2026" {
		t.Errorf("expected dateCreated 'March 05, 2026', got %q", got.DateCreated)
	}
	if got.Title != "Quiz 1" {
		t.Errorf("expected title 'Quiz 1', got %q", got.Title)
	}
	if !reflect.DeepEqual(got, created) {
		t.Errorf("stored exam differs from returned one:\n got %+v\nwant %+v", got, created)
	}
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		s.Create(ctx, testDraft(fmt.Sprintf("Quiz %d", i)))
	}

	seen := make(map[string]bool)
	for _, e := range s.Exams() {
		if seen[e.ID] {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestCreateRegeneratesCollidingID(t *testing.T) {
	ids := []string{"exam_dup", "exam_dup", "exam_new"}
	next := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	s, _, _ := newTestStore(t, WithSeed(nil), WithIDGenerator(next))
	ctx := context.Background()

	first := s.Create(ctx, testDraft("A"))
	second := s.Create(ctx, testDraft("B"))
	if first.ID != "exam_dup" || second.ID != "exam_new" {
		t.Errorf("expected exam_dup and exam_new, got %q and %q", first.ID, second.ID)
	}
}

func TestCreatePrependsAndIgnoresDraftIdentity(t *testing.T) {
	s, _, _ := newTestStore(t)
	d := testDraft("Quiz 1")
	d.ID = "caller-chosen"
	d.DateCreated = "January 01, 1999"

	e := s.Create(context.Background(), d)
	if e.ID == "caller-chosen" {
		t.Error("draft id must not be used")
	}
	if e.DateCreated != "March 05, 2026" {
		t.Errorf("expected store-assigned date, got %q", e.DateCreated)
	}
	if first := s.Exams()[0]; first.ID != e.ID {
		t.Errorf("expected new exam first, got %q", first.ID)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	s, a, _ := newTestStore(t)
	ctx := context.Background()
	orig, ok := s.Get("3")
	if !ok {
		t.Fatal("seed exam 3 missing")
	}

	d := testDraft("THE 301 | Revised")
	d.ID = "other"
	d.DateCreated = "never"
	d.Status = "Graded"
	d.Visible = false
	if !s.Update(ctx, "3", d) {
		t.Fatal("expected update to find exam 3")
	}

	got, _ := s.Get("3")
	want := fromDraft(d)
	want.ID = orig.ID
	want.DateCreated = orig.DateCreated
	if !reflect.DeepEqual(got, want) {
		t.Errorf("update mismatch:\n got %+v\nwant %+v", got, want)
	}

	// Position is unchanged and the change is persisted.
	if s.Exams()[2].ID != "3" {
		t.Error("expected updated exam to keep its position")
	}
	stored := a.Load(ctx)
	if stored[2].Title != "THE 301 | Revised" {
		t.Errorf("expected update persisted, got %q", stored[2].Title)
	}
}

func TestDeleteThenUpdateIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	if !s.Delete(ctx, "4") {
		t.Fatal("expected delete to find exam 4")
	}
	before := s.Exams()
	if len(before) != len(Seed())-1 {
		t.Fatalf("expected %d exams after delete, got %d", len(Seed())-1, len(before))
	}

	if s.Update(ctx, "4", testDraft("ghost")) {
		t.Error("update of deleted exam reported success")
	}
	if s.Delete(ctx, "4") {
		t.Error("second delete reported success")
	}
	if after := s.Exams(); !reflect.DeepEqual(before, after) {
		t.Error("store changed after no-op update")
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	s, a, mem := newTestStore(t, WithSeed(nil))
	ctx := context.Background()
	mem.FailWrites(errors.New("quota exceeded"))

	e := s.Create(ctx, testDraft("Quiz 1"))
	if _, ok := s.Get(e.ID); !ok {
		t.Error("expected exam in memory despite failed save")
	}
	if n := len(a.Load(ctx)); n != 0 {
		t.Errorf("expected nothing persisted, got %d exams", n)
	}
}

func TestExamsReturnsCopy(t *testing.T) {
	s, _, _ := newTestStore(t)
	got := s.Exams()
	got[0].Title = "mutated"
	if fresh := s.Exams(); fresh[0].Title == "mutated" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestFiltersAndFilteredView(t *testing.T) {
	s, _, _ := newTestStore(t)
	str := func(v string) *string { return &v }

	if f := s.Filters(); f != (model.Filters{}) {
		t.Fatalf("expected empty filters, got %+v", f)
	}
	if n := len(s.Filtered()); n != len(Seed()) {
		t.Fatalf("expected all exams with no filters, got %d", n)
	}

	s.SetFilters(model.FilterPatch{Subject: str("Theatre Art")})
	if n := len(s.Filtered()); n != 4 {
		t.Errorf("expected 4 theatre exams, got %d", n)
	}

	// Query is merged, subject kept.
	f := s.SetFilters(model.FilterPatch{Query: str("yr 3")})
	if f.Subject != "Theatre Art" || f.Query != "yr 3" {
		t.Errorf("unexpected filters %+v", f)
	}
	got := s.Filtered()
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("expected only exam 3, got %+v", got)
	}

	// Clearing the subject widens the view again.
	s.SetFilters(model.FilterPatch{Subject: str("")})
	if n := len(s.Filtered()); n != 2 {
		t.Errorf("expected 2 year-3 exams, got %d", n)
	}

	// A new exam shows up in the view without touching the filters.
	d := testDraft("Mat 390 | Topology")
	d.Year = "YR 3"
	s.Create(context.Background(), d)
	if got := s.Filtered(); len(got) != 3 || got[0].Title != "Mat 390 | Topology" {
		t.Errorf("expected new exam first in filtered view, got %+v", got)
	}
}

func TestSubjects(t *testing.T) {
	s, _, _ := newTestStore(t)
	want := []string{"Mathematics", "Theatre Art"}
	if got := s.Subjects(); !reflect.DeepEqual(got, want) {
		t.Errorf("Subjects() = %v, want %v", got, want)
	}

	empty, _, _ := newTestStore(t, WithSeed(nil))
	if got := empty.Subjects(); len(got) != 0 {
		t.Errorf("expected no subjects, got %v", got)
	}
}

func TestWriteExport(t *testing.T) {
	s, _, _ := newTestStore(t)
	var buf bytes.Buffer
	if err := s.WriteExport(&buf); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "[\n  {\n    \"id\": \"1\"") {
		t.Errorf("unexpected export layout:\n%s", out[:min(len(out), 80)])
	}
	if !strings.HasSuffix(out, "]\n") {
		t.Error("expected trailing newline")
	}

	var got []model.Exam
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if !reflect.DeepEqual(got, s.Exams()) {
		t.Error("export differs from the collection")
	}
}

func TestConcurrentMutations(t *testing.T) {
	s, a, _ := newTestStore(t, WithSeed(nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := s.Create(ctx, testDraft(fmt.Sprintf("Quiz %d", i)))
			_ = s.Filtered()
			if i%2 == 0 {
				s.Delete(ctx, e.ID)
			}
		}(i)
	}
	wg.Wait()

	if n := len(s.Exams()); n != 10 {
		t.Errorf("expected 10 exams, got %d", n)
	}
	if n := len(a.Load(ctx)); n != 10 {
		t.Errorf("expected last snapshot with 10 exams, got %d", n)
	}
}
