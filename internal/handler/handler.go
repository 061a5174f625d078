// Package handler exposes the exam store as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradetrack/internal/exams"
	"github.com/pavelanni/gradetrack/internal/grade"
	"github.com/pavelanni/gradetrack/internal/i18n"
	"github.com/pavelanni/gradetrack/internal/model"
	"github.com/pavelanni/gradetrack/internal/validate"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *exams.Store
	validator *validate.Validator
}

// New creates a new Handler.
func New(s *exams.Store, v *validate.Validator) *Handler {
	return &Handler{store: s, validator: v}
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/exams", h.handleListExams)
		r.Post("/exams", h.handleCreateExam)
		r.Get("/exams/filtered", h.handleFiltered)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Put("/exams/{examID}", h.handleUpdateExam)
		r.Delete("/exams/{examID}", h.handleDeleteExam)
		r.Post("/exams/{examID}/grade", h.handleGrade)
		r.Get("/filters", h.handleGetFilters)
		r.Patch("/filters", h.handlePatchFilters)
		r.Get("/subjects", h.handleSubjects)
		r.Get("/export", h.handleExport)
	})
}

type errorResponse struct {
	Error  string            `json:"error,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Exams())
}

func (h *Handler) handleFiltered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Filtered())
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	e, ok := h.store.Get(chi.URLParam(r, "examID"))
	if !ok {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ExamNotFound"))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// validDraft decodes and validates a draft, writing the error response itself.
func (h *Handler) validDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var d model.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return d, false
	}
	d, errs := h.validator.Draft(r.Context(), d)
	if errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: errs})
		return d, false
	}
	return d, true
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	d, ok := h.validDraft(w, r)
	if !ok {
		return
	}
	e := h.store.Create(r.Context(), d)
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	d, ok := h.validDraft(w, r)
	if !ok {
		return
	}
	// Unknown ids are ignored.
	h.store.Update(r.Context(), chi.URLParam(r, "examID"), d)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	h.store.Delete(r.Context(), chi.URLParam(r, "examID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Filters())
}

// handlePatchFilters merges the given criteria. A key set to null clears it;
// absent keys are left unchanged.
func (h *Handler) handlePatchFilters(w http.ResponseWriter, r *http.Request) {
	var body map[string]*string
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var patch model.FilterPatch
	for key, v := range body {
		if v == nil {
			v = new(string)
		}
		switch key {
		case "query":
			patch.Query = v
		case "subject":
			patch.Subject = v
		case "dateRange":
			patch.DateRange = v
		default:
			writeError(w, http.StatusBadRequest, "unknown filter "+key)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.store.SetFilters(patch))
}

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Subjects())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="exams.json"`)
	if err := h.store.WriteExport(w); err != nil {
		slog.Error("export failed", "error", err)
	}
}

type gradeRequest struct {
	Score json.RawMessage `json:"score"`
}

type gradeResponse struct {
	grade.Result
	Display string `json:"display"`
	Label   string `json:"label"`
}

// parseScore accepts the score as a JSON number or as the raw text typed by the user.
func parseScore(raw json.RawMessage) (float64, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return grade.ParseScore(text)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, grade.ErrInvalidScore
	}
	return n, nil
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exam, ok := h.store.Get(chi.URLParam(r, "examID"))
	if !ok {
		writeError(w, http.StatusNotFound, i18n.T(ctx, "ExamNotFound"))
		return
	}

	var req gradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	score, err := parseScore(req.Score)
	if err == nil {
		var res grade.Result
		res, err = grade.Evaluate(score, exam)
		if err == nil {
			label := i18n.T(ctx, "Fail")
			if res.Passed {
				label = i18n.T(ctx, "Pass")
			}
			slog.Info("graded exam", "id", exam.ID, "score", score, "percentage", res.Rounded(), "passed", res.Passed)
			writeJSON(w, http.StatusOK, gradeResponse{Result: res, Display: res.Display(), Label: label})
			return
		}
	}

	var re *grade.RangeError
	switch {
	case errors.As(err, &re):
		writeError(w, http.StatusUnprocessableEntity, i18n.Td(ctx, "ScoreRange", map[string]any{"Min": re.Min, "Max": re.Max}))
	case errors.Is(err, grade.ErrInvalidExam):
		writeError(w, http.StatusUnprocessableEntity, i18n.T(ctx, "InvalidExam"))
	default:
		writeError(w, http.StatusUnprocessableEntity, i18n.T(ctx, "ValidNumber"))
	}
}
