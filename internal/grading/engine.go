package grading

import (
	"context"
	"fmt"
	"log"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/audit"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
)

// Engine scores submitted attempts. Grading is idempotent: a result that is
// already graded is left untouched, and the submitted -> graded transition is
// a compare-and-set, so concurrent graders resolve to a single write.
type Engine struct {
	store  exam.Store
	events audit.Recorder
	logger *log.Logger
}

func New(store exam.Store, events audit.Recorder, logger *log.Logger) *Engine {
	if events == nil {
		events = audit.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{store: store, events: events, logger: logger}
}

// GradeResult scores every answer of a submitted attempt and advances it to
// graded. Calling it on an already-graded attempt is a no-op returning the
// stored outcome; any other status fails with exam.ErrNotSubmitted. Student
// answers are never mutated.
func (g *Engine) GradeResult(ctx context.Context, resultID string) (exam.Result, error) {
	r, err := g.store.GetResultByID(ctx, resultID)
	if err != nil {
		return exam.Result{}, err
	}
	switch r.Status {
	case exam.StatusGraded:
		return r, nil
	case exam.StatusSubmitted:
	default:
		return exam.Result{}, exam.ErrNotSubmitted
	}

	ex, err := g.store.GetExamWithKeys(ctx, r.ExamID)
	if err != nil {
		return exam.Result{}, err
	}

	earned := make(map[string]int, len(r.Scores))
	total := 0
	for _, sc := range r.Scores {
		q, ok := ex.QuestionByID(sc.QuestionID)
		if !ok {
			return exam.Result{}, fmt.Errorf("result %s: score references question %s outside exam %s", r.ID, sc.QuestionID, ex.ID)
		}
		_, pts := exam.Validate(q, sc.AnswerText)
		earned[sc.QuestionID] = pts
		total += pts
	}

	if err := g.store.ApplyGrades(ctx, r.ID, earned, total); err != nil {
		return exam.Result{}, err
	}
	_ = g.events.Append(ctx, audit.AttemptGraded, r.ID, map[string]any{
		"exam_id": r.ExamID, "student_id": r.StudentID, "total_score": total,
	})
	return g.store.GetResultByID(ctx, r.ID)
}

// GradeSubmitted grades every submitted-ungraded attempt. A failure on one
// attempt is logged with its id and does not stop the rest; whatever is left
// non-terminal is naturally retried by the next sweep.
func (g *Engine) GradeSubmitted(ctx context.Context) (int, error) {
	list, err := g.store.ListSubmittedUngraded(ctx)
	if err != nil {
		return 0, err
	}
	graded := 0
	for _, r := range list {
		if _, err := g.GradeResult(ctx, r.ID); err != nil {
			g.logger.Printf("grading: result %s: %v", r.ID, err)
			continue
		}
		graded++
	}
	return graded, nil
}
