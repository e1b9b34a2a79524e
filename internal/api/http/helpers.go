package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
)

var errNotEnrolled = errors.New("not enrolled")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto HTTP status codes in one place.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound), errors.Is(err, exam.ErrResultNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrWindowNotOpen), errors.Is(err, exam.ErrWindowClosed),
		errors.Is(err, exam.ErrAlreadySubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, exam.ErrIncompleteAnswers):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, exam.ErrQuestionNotInExam):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errNotEnrolled):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
