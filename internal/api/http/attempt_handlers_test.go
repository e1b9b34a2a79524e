package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/SeSAC-Ermes/Epari-backend-sub000/internal/api/http"
	authmw "github.com/SeSAC-Ermes/Epari-backend-sub000/internal/auth/middleware"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
)

var examStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// asUser injects the authenticated subject the way JWTMiddleware would.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authmw.WithSubject(r.Context(), userID)))
		})
	}
}

func newTestRouter(t *testing.T, userID string) (*chi.Mux, *exam.MemStore, *roster.MemRoster) {
	t.Helper()
	store := exam.NewMemStore()
	ro := roster.NewMemRoster()
	ctx := context.Background()

	if err := store.PutExam(ctx, exam.Exam{
		ID:          "exam-1",
		Title:       "Quiz",
		StartAt:     examStart.Unix(),
		DurationMin: 60,
		Questions: []exam.Question{
			{ID: "q1", Seq: 1, Type: exam.QuestionSubjective, Weight: 10, CorrectAnswer: "ok"},
			{ID: "q2", Seq: 2, Type: exam.QuestionSubjective, Weight: 10, CorrectAnswer: "ok"},
		},
	}); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	if err := ro.Enroll(ctx, "exam-1", "stu-1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	now := func() time.Time { return examStart.Add(10 * time.Minute) }
	svc := exam.NewService(store, nil, now)

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Post("/exams/{examID}/attempts", api.StartAttemptHandler(svc, ro))
	r.Post("/exams/{examID}/questions/{questionID}/answer", api.SubmitAnswerHandler(svc, ro))
	r.Post("/exams/{examID}/questions/{questionID}/draft", api.SaveDraftHandler(svc, ro))
	r.Post("/exams/{examID}/submit", api.FinishAttemptHandler(svc, ro))
	r.Get("/exams/{examID}/attempt", api.AttemptStatusHandler(svc, ro))
	r.Get("/exams/{examID}/stats", api.ExamStatsHandler(store))
	return r, store, ro
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAttemptFlow(t *testing.T) {
	r, _, _ := newTestRouter(t, "stu-1")

	if rec := do(t, r, "POST", "/exams/exam-1/attempts", "{}"); rec.Code != http.StatusOK {
		t.Fatalf("start: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, "POST", "/exams/exam-1/questions/q1/answer", `{"text":"ok"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("answer: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, "POST", "/exams/exam-1/questions/q2/draft", `{"text":"maybe"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("draft: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec := do(t, r, "GET", "/exams/exam-1/attempt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: code=%d", rec.Code)
	}
	var st exam.AttemptStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.AnsweredCount != 1 || st.TotalQuestions != 2 || st.RemainingMinutes != 50 {
		t.Fatalf("unexpected status: %+v", st)
	}

	// q2 is only drafted, so a plain finish is rejected.
	if rec := do(t, r, "POST", "/exams/exam-1/submit", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("incomplete finish: code=%d want 422", rec.Code)
	}
	if rec := do(t, r, "POST", "/exams/exam-1/submit?force=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("forced finish: code=%d body=%s", rec.Code, rec.Body.String())
	}
	// The attempt is closed now.
	if rec := do(t, r, "POST", "/exams/exam-1/questions/q1/answer", `{"text":"late"}`); rec.Code != http.StatusConflict {
		t.Fatalf("late write: code=%d want 409", rec.Code)
	}
}

func TestNotEnrolledIsForbidden(t *testing.T) {
	r, _, _ := newTestRouter(t, "stu-9")
	if rec := do(t, r, "POST", "/exams/exam-1/attempts", "{}"); rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d want 403", rec.Code)
	}
}

func TestUnknownQuestionIsBadRequest(t *testing.T) {
	r, _, _ := newTestRouter(t, "stu-1")
	do(t, r, "POST", "/exams/exam-1/attempts", "{}")
	if rec := do(t, r, "POST", "/exams/exam-1/questions/q-missing/answer", `{"text":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", rec.Code)
	}
}

func TestUnknownExamIsNotFound(t *testing.T) {
	r, _, ro := newTestRouter(t, "stu-1")
	if err := ro.Enroll(context.Background(), "exam-9", "stu-1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if rec := do(t, r, "POST", "/exams/exam-9/attempts", "{}"); rec.Code != http.StatusNotFound {
		t.Fatalf("code=%d want 404", rec.Code)
	}
}
