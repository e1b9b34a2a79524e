package exam

// Question types.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionSubjective     = "subjective"
)

// Result statuses. in_progress -> submitted -> graded; not_submitted is a
// terminal state synthesized by the sweeper for students who never started.
const (
	StatusInProgress   = "in_progress"
	StatusSubmitted    = "submitted"
	StatusGraded       = "graded"
	StatusNotSubmitted = "not_submitted"
)

type Choice struct {
	Num  int    `json:"num"`
	Text string `json:"text"`
}

type Question struct {
	ID      string   `json:"id"`
	Seq     int      `json:"seq"`
	Type    string   `json:"type"` // multiple_choice | subjective
	Prompt  string   `json:"prompt,omitempty"`
	Weight  int      `json:"weight"`
	Choices []Choice `json:"choices,omitempty"`

	// CorrectAnswer holds the choice number as text for multiple_choice so a
	// single string comparison covers both variants. Stripped when an exam is
	// served to students.
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

type Exam struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id,omitempty"`
	Title       string     `json:"title"`
	StartAt     int64      `json:"start_at"` // unix seconds
	DurationMin int        `json:"duration_min"`
	TotalScore  int        `json:"total_score"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   int64      `json:"created_at,omitempty"`
}

// Result is one student's record of taking one exam. At most one exists per
// (exam, student) pair.
type Result struct {
	ID         string  `json:"id"`
	ExamID     string  `json:"exam_id"`
	StudentID  string  `json:"student_id"`
	Status     string  `json:"status"`
	SubmitTime *int64  `json:"submit_time,omitempty"` // unix seconds, nil until finalized
	Version    int64   `json:"version"`
	TotalScore int     `json:"total_score"` // meaningful once status is graded
	Scores     []Score `json:"scores,omitempty"`
	CreatedAt  int64   `json:"created_at,omitempty"`
}

// Score is one answer row. Temporary marks a draft: overwritable, not counted
// toward completeness, never graded until promoted by a final submit.
type Score struct {
	ID          string `json:"id"`
	ResultID    string `json:"result_id"`
	QuestionID  string `json:"question_id"`
	AnswerText  string `json:"answer_text"`
	EarnedScore int    `json:"earned_score"`
	Temporary   bool   `json:"temporary"`
}

// QuestionByID returns the exam's question with the given id, or false when
// the question does not belong to this exam.
func (e Exam) QuestionByID(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
