package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
)

// POST /exams — instructor uploads an exam with its questions.
func UploadExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e exam.Exam
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if e.Title == "" || e.DurationMin <= 0 {
			http.Error(w, "title and duration_min required", http.StatusBadRequest)
			return
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt == 0 {
			e.CreatedAt = time.Now().Unix()
		}
		total := 0
		for _, q := range e.Questions {
			total += q.Weight
		}
		e.TotalScore = total
		if err := store.PutExam(r.Context(), e); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": e.ID})
	}
}

// GET /exams/{examID} — student-safe view, answer keys stripped.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// POST /exams/{examID}/enrollments — instructor adds a student to the roster.
func EnrollHandler(ro roster.Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" {
			http.Error(w, "student_id required", http.StatusBadRequest)
			return
		}
		if err := ro.Enroll(r.Context(), chi.URLParam(r, "examID"), req.StudentID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
