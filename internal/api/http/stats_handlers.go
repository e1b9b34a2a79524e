package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
)

// GET /exams/{examID}/stats — instructor aggregate over graded results.
func ExamStatsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.ExamStats(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /exams/{examID}/results — per-student grade views.
func ExamResultsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := store.ListResultViews(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}
