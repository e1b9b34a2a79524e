package exam

import (
	"context"
	"errors"
	"time"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/audit"
)

// AttemptStatus is the student-facing progress projection.
type AttemptStatus struct {
	Status           string `json:"status"`
	AnsweredCount    int    `json:"answered_count"` // final (non-temporary) answers
	TotalQuestions   int    `json:"total_questions"`
	RemainingMinutes int    `json:"remaining_minutes"`
}

// Service implements the attempt state machine: start, draft/final answer
// writes, and finish. Every write is gated by the exam window and by the
// result still being in_progress; the store takes the status check atomically
// with the write so a late student request can never resurrect an attempt the
// sweeper already closed.
type Service struct {
	store  Store
	events audit.Recorder
	now    Clock
}

func NewService(store Store, events audit.Recorder, now Clock) *Service {
	if events == nil {
		events = audit.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, events: events, now: now}
}

// Start opens an attempt for the student. Starting twice is idempotent: the
// existing attempt is returned as long as it is still in_progress; once it is
// terminal Start fails with ErrAlreadySubmitted. A new attempt is only created
// while the exam window is open.
func (s *Service) Start(ctx context.Context, examID, studentID string) (Result, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return Result{}, err
	}

	if r, err := s.store.GetResult(ctx, examID, studentID); err == nil {
		if r.Status != StatusInProgress {
			return Result{}, ErrAlreadySubmitted
		}
		return r, nil
	} else if !errors.Is(err, ErrResultNotFound) {
		return Result{}, err
	}

	now := s.now()
	if !IsDuring(now, ex) {
		return Result{}, ErrWindowNotOpen
	}

	created, err := s.store.CreateResult(ctx, Result{
		ExamID:    examID,
		StudentID: studentID,
		Status:    StatusInProgress,
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return Result{}, err
	}
	_ = s.events.Append(ctx, audit.AttemptStarted, created.ID, map[string]string{
		"exam_id": examID, "student_id": studentID,
	})
	return created, nil
}

// SaveTemporary upserts a draft answer for one question. Drafts are
// overwritten in place; no history is kept.
func (s *Service) SaveTemporary(ctx context.Context, examID, studentID, questionID, text string) error {
	return s.answer(ctx, examID, studentID, questionID, text, true)
}

// SubmitAnswer upserts the final answer for one question. Final answers count
// toward the completeness check in Finish.
func (s *Service) SubmitAnswer(ctx context.Context, examID, studentID, questionID, text string) error {
	return s.answer(ctx, examID, studentID, questionID, text, false)
}

func (s *Service) answer(ctx context.Context, examID, studentID, questionID, text string, temporary bool) error {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return err
	}
	if !IsDuring(s.now(), ex) {
		return ErrWindowClosed
	}
	if _, ok := ex.QuestionByID(questionID); !ok {
		return ErrQuestionNotInExam
	}
	r, err := s.store.GetResult(ctx, examID, studentID)
	if err != nil {
		return err
	}
	if r.Status != StatusInProgress {
		return ErrAlreadySubmitted
	}
	return s.store.UpsertScore(ctx, r.ID, Score{
		QuestionID: questionID,
		AnswerText: text,
		Temporary:  temporary,
	})
}

// Finish closes the attempt: submit_time is set, status moves to submitted and
// every remaining draft is promoted to final. Without force it fails with
// ErrIncompleteAnswers unless every question has a final answer. The
// underlying transition is a compare-and-set, so when a student and the
// sweeper race exactly one of them wins and the other sees ErrAlreadySubmitted.
func (s *Service) Finish(ctx context.Context, examID, studentID string, force bool) (Result, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return Result{}, err
	}
	r, err := s.store.GetResult(ctx, examID, studentID)
	if err != nil {
		return Result{}, err
	}
	if r.Status != StatusInProgress {
		return Result{}, ErrAlreadySubmitted
	}
	if !force {
		answered := make(map[string]bool, len(r.Scores))
		for _, sc := range r.Scores {
			if !sc.Temporary {
				answered[sc.QuestionID] = true
			}
		}
		for _, q := range ex.Questions {
			if !answered[q.ID] {
				return Result{}, ErrIncompleteAnswers
			}
		}
	}
	if err := s.store.FinishResult(ctx, r.ID, s.now().Unix()); err != nil {
		return Result{}, err
	}
	_ = s.events.Append(ctx, audit.AttemptSubmitted, r.ID, map[string]any{
		"exam_id": examID, "student_id": studentID, "forced": force,
	})
	return s.store.GetResultByID(ctx, r.ID)
}

// Status reports attempt progress for the student dashboard.
func (s *Service) Status(ctx context.Context, examID, studentID string) (AttemptStatus, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return AttemptStatus{}, err
	}
	r, err := s.store.GetResult(ctx, examID, studentID)
	if err != nil {
		return AttemptStatus{}, err
	}
	st := AttemptStatus{
		Status:         r.Status,
		TotalQuestions: len(ex.Questions),
	}
	for _, sc := range r.Scores {
		if !sc.Temporary {
			st.AnsweredCount++
		}
	}
	if r.Status == StatusInProgress {
		st.RemainingMinutes = RemainingMinutes(s.now(), ex)
	}
	return st, nil
}
