package exam

import "context"

// Stats is an instructor-facing aggregate over one exam's results. Score
// figures cover graded results only.
type Stats struct {
	ExamID       string  `json:"exam_id"`
	Graded       int     `json:"graded"`
	Submitted    int     `json:"submitted"`
	InProgress   int     `json:"in_progress"`
	NotSubmitted int     `json:"not_submitted"`
	Average      float64 `json:"average"`
	Max          int     `json:"max"`
	Min          int     `json:"min"`
}

// ResultView is the per-student grade projection.
type ResultView struct {
	ResultID   string `json:"result_id"`
	StudentID  string `json:"student_id"`
	Status     string `json:"status"`
	SubmitTime *int64 `json:"submit_time,omitempty"`
	TotalScore int    `json:"total_score"`
}

// Store is the persistence boundary for exams, attempts and scores. Both
// implementations (SQL, in-memory) give the same atomicity guarantees:
//
//   - UpsertScore only lands while the result's status is in_progress, checked
//     atomically with the write.
//   - FinishResult and ApplyGrades are compare-and-set transitions; a caller
//     that loses the race gets ErrAlreadySubmitted / ErrNotSubmitted and its
//     write is discarded.
type Store interface {
	PutExam(ctx context.Context, e Exam) error
	// GetExam is student-safe: correct answers are stripped.
	GetExam(ctx context.Context, id string) (Exam, error)
	GetExamWithKeys(ctx context.Context, id string) (Exam, error)

	// CreateResult inserts a new result row. When a row for the same
	// (exam, student) pair already exists, that row is returned instead; a
	// duplicate is never created.
	CreateResult(ctx context.Context, r Result) (Result, error)
	GetResult(ctx context.Context, examID, studentID string) (Result, error)
	GetResultByID(ctx context.Context, id string) (Result, error)

	// UpsertScore writes or overwrites the single score row for
	// (result, question). No history is kept.
	UpsertScore(ctx context.Context, resultID string, sc Score) error
	// FinishResult transitions in_progress -> submitted and promotes every
	// score to non-temporary.
	FinishResult(ctx context.Context, resultID string, submitTime int64) error
	// ApplyGrades writes earned scores and transitions submitted -> graded.
	ApplyGrades(ctx context.Context, resultID string, earned map[string]int, total int) error

	ListExpiredInProgress(ctx context.Context, now int64) ([]Result, error)
	ListSubmittedUngraded(ctx context.Context) ([]Result, error)
	ListElapsedExams(ctx context.Context, now int64) ([]Exam, error)

	ExamStats(ctx context.Context, examID string) (Stats, error)
	ListResultViews(ctx context.Context, examID string) ([]ResultView, error)
}

// statsFromViews folds result views into the aggregate both stores serve.
func statsFromViews(examID string, views []ResultView) Stats {
	st := Stats{ExamID: examID}
	sum := 0
	for _, v := range views {
		switch v.Status {
		case StatusGraded:
			if st.Graded == 0 || v.TotalScore > st.Max {
				st.Max = v.TotalScore
			}
			if st.Graded == 0 || v.TotalScore < st.Min {
				st.Min = v.TotalScore
			}
			st.Graded++
			sum += v.TotalScore
		case StatusSubmitted:
			st.Submitted++
		case StatusInProgress:
			st.InProgress++
		case StatusNotSubmitted:
			st.NotSubmitted++
		}
	}
	if st.Graded > 0 {
		st.Average = float64(sum) / float64(st.Graded)
	}
	return st
}
