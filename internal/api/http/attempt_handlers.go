package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/SeSAC-Ermes/Epari-backend-sub000/internal/auth/middleware"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
)

// requireEnrollment resolves the authenticated student and checks the roster.
// Returns ("", false) after writing the error response when the caller may
// not touch this exam.
func requireEnrollment(w http.ResponseWriter, r *http.Request, ro roster.Roster, examID string) (string, bool) {
	studentID := authmw.SubjectFromContext(r.Context())
	if studentID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	ok, err := ro.IsEnrolled(r.Context(), examID, studentID)
	if err != nil {
		writeErr(w, err)
		return "", false
	}
	if !ok {
		writeErr(w, errNotEnrolled)
		return "", false
	}
	return studentID, true
}

// POST /exams/{examID}/attempts
func StartAttemptHandler(svc *exam.Service, ro roster.Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		studentID, ok := requireEnrollment(w, r, ro, examID)
		if !ok {
			return
		}
		res, err := svc.Start(r.Context(), examID, studentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type answerReq struct {
	Text string `json:"text"`
}

// POST /exams/{examID}/questions/{questionID}/draft
func SaveDraftHandler(svc *exam.Service, ro roster.Roster) http.HandlerFunc {
	return answerHandler(svc, ro, true)
}

// POST /exams/{examID}/questions/{questionID}/answer
func SubmitAnswerHandler(svc *exam.Service, ro roster.Roster) http.HandlerFunc {
	return answerHandler(svc, ro, false)
}

func answerHandler(svc *exam.Service, ro roster.Roster, draft bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		questionID := chi.URLParam(r, "questionID")
		studentID, ok := requireEnrollment(w, r, ro, examID)
		if !ok {
			return
		}
		var req answerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var err error
		if draft {
			err = svc.SaveTemporary(r.Context(), examID, studentID, questionID, req.Text)
		} else {
			err = svc.SubmitAnswer(r.Context(), examID, studentID, questionID, req.Text)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /exams/{examID}/submit?force=true
func FinishAttemptHandler(svc *exam.Service, ro roster.Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		studentID, ok := requireEnrollment(w, r, ro, examID)
		if !ok {
			return
		}
		force := r.URL.Query().Get("force") == "true"
		res, err := svc.Finish(r.Context(), examID, studentID, force)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /exams/{examID}/attempt
func AttemptStatusHandler(svc *exam.Service, ro roster.Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		studentID, ok := requireEnrollment(w, r, ro, examID)
		if !ok {
			return
		}
		st, err := svc.Status(r.Context(), examID, studentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
