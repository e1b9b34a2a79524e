package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SQLStore persists exams, results and scores via database/sql. It works
// against both the sqlite and postgres schemas; every state transition is a
// single conditional UPDATE so concurrent writers resolve deterministically.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put exam: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO exams (id,course_id,title,start_at,duration_min,total_score,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title,
			start_at=EXCLUDED.start_at, duration_min=EXCLUDED.duration_min, total_score=EXCLUDED.total_score`,
		e.ID, e.CourseID, e.Title, e.StartAt, e.DurationMin, e.TotalScore, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert exam: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id=$1`, e.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range e.Questions {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		cj, err := json.Marshal(q.Choices)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO exam_questions (id,exam_id,seq,type,prompt,weight,correct_answer,choices_json)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			id, e.ID, q.Seq, q.Type, q.Prompt, q.Weight, q.CorrectAnswer, string(cj)); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.getExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	for i := range e.Questions {
		e.Questions[i].CorrectAnswer = ""
	}
	return e, nil
}

func (s *SQLStore) GetExamWithKeys(ctx context.Context, id string) (Exam, error) {
	return s.getExam(ctx, id)
}

func (s *SQLStore) getExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,course_id,title,start_at,duration_min,total_score,created_at
		FROM exams WHERE id=$1`, id)
	var e Exam
	if err := row.Scan(&e.ID, &e.CourseID, &e.Title, &e.StartAt, &e.DurationMin, &e.TotalScore, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, fmt.Errorf("load exam: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,seq,type,prompt,weight,correct_answer,choices_json
		FROM exam_questions WHERE exam_id=$1 ORDER BY seq`, id)
	if err != nil {
		return Exam{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q Question
		var cj string
		if err := rows.Scan(&q.ID, &q.Seq, &q.Type, &q.Prompt, &q.Weight, &q.CorrectAnswer, &cj); err != nil {
			return Exam{}, fmt.Errorf("scan question: %w", err)
		}
		if cj != "" {
			if err := json.Unmarshal([]byte(cj), &q.Choices); err != nil {
				return Exam{}, fmt.Errorf("decode choices: %w", err)
			}
		}
		e.Questions = append(e.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return Exam{}, fmt.Errorf("iterate questions: %w", err)
	}
	return e, nil
}

func (s *SQLStore) CreateResult(ctx context.Context, r Result) (Result, error) {
	r.ID = uuid.NewString()
	r.Version = 1
	_, err := s.db.ExecContext(ctx, `INSERT INTO exam_results (id,exam_id,student_id,status,submit_time,version,total_score,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,$7)`,
		r.ID, r.ExamID, r.StudentID, r.Status, r.SubmitTime, r.Version, r.CreatedAt)
	if err != nil {
		// The unique (exam_id, student_id) index makes a concurrent double
		// start lose here; hand back the row that won.
		if existing, gerr := s.GetResult(ctx, r.ExamID, r.StudentID); gerr == nil {
			return existing, nil
		}
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, examID, studentID string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,status,submit_time,version,total_score,created_at
		FROM exam_results WHERE exam_id=$1 AND student_id=$2`, examID, studentID)
	return s.scanResult(ctx, row)
}

func (s *SQLStore) GetResultByID(ctx context.Context, id string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,status,submit_time,version,total_score,created_at
		FROM exam_results WHERE id=$1`, id)
	return s.scanResult(ctx, row)
}

func (s *SQLStore) scanResult(ctx context.Context, row *sql.Row) (Result, error) {
	var r Result
	var submit sql.NullInt64
	if err := row.Scan(&r.ID, &r.ExamID, &r.StudentID, &r.Status, &submit, &r.Version, &r.TotalScore, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrResultNotFound
		}
		return Result{}, fmt.Errorf("load result: %w", err)
	}
	if submit.Valid {
		r.SubmitTime = &submit.Int64
	}
	scores, err := s.listScores(ctx, r.ID)
	if err != nil {
		return Result{}, err
	}
	r.Scores = scores
	return r, nil
}

func (s *SQLStore) listScores(ctx context.Context, resultID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,result_id,question_id,answer_text,earned_score,temporary
		FROM exam_scores WHERE result_id=$1 ORDER BY question_id`, resultID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()
	var out []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.ID, &sc.ResultID, &sc.QuestionID, &sc.AnswerText, &sc.EarnedScore, &sc.Temporary); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertScore(ctx context.Context, resultID string, sc Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert score: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Bumping the version only while in_progress takes the status check
	// atomically with the score write; a result the sweeper just closed
	// rejects the write here.
	res, err := tx.ExecContext(ctx, `UPDATE exam_results SET version=version+1
		WHERE id=$1 AND status=$2`, resultID, StatusInProgress)
	if err != nil {
		return fmt.Errorf("guard result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_ = tx.Rollback()
		if _, gerr := s.GetResultByID(ctx, resultID); errors.Is(gerr, ErrResultNotFound) {
			return ErrResultNotFound
		}
		return ErrAlreadySubmitted
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO exam_scores (id,result_id,question_id,answer_text,earned_score,temporary)
		VALUES ($1,$2,$3,$4,0,$5)
		ON CONFLICT (result_id,question_id) DO UPDATE SET
			answer_text=EXCLUDED.answer_text, temporary=EXCLUDED.temporary`,
		uuid.NewString(), resultID, sc.QuestionID, sc.AnswerText, sc.Temporary)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) FinishResult(ctx context.Context, resultID string, submitTime int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE exam_results
		SET status=$2, submit_time=$3, version=version+1
		WHERE id=$1 AND status=$4`,
		resultID, StatusSubmitted, submitTime, StatusInProgress)
	if err != nil {
		return fmt.Errorf("finish result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_ = tx.Rollback()
		if _, gerr := s.GetResultByID(ctx, resultID); errors.Is(gerr, ErrResultNotFound) {
			return ErrResultNotFound
		}
		return ErrAlreadySubmitted
	}
	// A final submit always finalizes drafts.
	if _, err := tx.ExecContext(ctx, `UPDATE exam_scores SET temporary=FALSE WHERE result_id=$1`, resultID); err != nil {
		return fmt.Errorf("finalize drafts: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) ApplyGrades(ctx context.Context, resultID string, earned map[string]int, total int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply grades: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE exam_results
		SET status=$2, total_score=$3, version=version+1
		WHERE id=$1 AND status=$4`,
		resultID, StatusGraded, total, StatusSubmitted)
	if err != nil {
		return fmt.Errorf("grade result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotSubmitted
	}
	for qid, pts := range earned {
		if _, err := tx.ExecContext(ctx, `UPDATE exam_scores SET earned_score=$3
			WHERE result_id=$1 AND question_id=$2`, resultID, qid, pts); err != nil {
			return fmt.Errorf("write earned score: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListExpiredInProgress(ctx context.Context, now int64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.id,r.exam_id,r.student_id,r.status,r.submit_time,r.version,r.total_score,r.created_at
		FROM exam_results r
		JOIN exams e ON e.id = r.exam_id
		WHERE r.status=$1 AND $2 >= e.start_at + e.duration_min*60`,
		StatusInProgress, now)
	if err != nil {
		return nil, fmt.Errorf("query expired attempts: %w", err)
	}
	return collectResults(rows)
}

func (s *SQLStore) ListSubmittedUngraded(ctx context.Context) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,student_id,status,submit_time,version,total_score,created_at
		FROM exam_results WHERE status=$1`, StatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("query ungraded attempts: %w", err)
	}
	return collectResults(rows)
}

func collectResults(rows *sql.Rows) ([]Result, error) {
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var r Result
		var submit sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ExamID, &r.StudentID, &r.Status, &submit, &r.Version, &r.TotalScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if submit.Valid {
			r.SubmitTime = &submit.Int64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListElapsedExams(ctx context.Context, now int64) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,course_id,title,start_at,duration_min,total_score,created_at
		FROM exams WHERE $1 >= start_at + duration_min*60`, now)
	if err != nil {
		return nil, fmt.Errorf("query elapsed exams: %w", err)
	}
	defer rows.Close()
	var out []Exam
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.CourseID, &e.Title, &e.StartAt, &e.DurationMin, &e.TotalScore, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) ExamStats(ctx context.Context, examID string) (Stats, error) {
	views, err := s.ListResultViews(ctx, examID)
	if err != nil {
		return Stats{}, err
	}
	return statsFromViews(examID, views), nil
}

func (s *SQLStore) ListResultViews(ctx context.Context, examID string) ([]ResultView, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,student_id,status,submit_time,total_score
		FROM exam_results WHERE exam_id=$1 ORDER BY student_id`, examID)
	if err != nil {
		return nil, fmt.Errorf("query result views: %w", err)
	}
	defer rows.Close()
	var out []ResultView
	for rows.Next() {
		var v ResultView
		var submit sql.NullInt64
		if err := rows.Scan(&v.ResultID, &v.StudentID, &v.Status, &submit, &v.TotalScore); err != nil {
			return nil, fmt.Errorf("scan result view: %w", err)
		}
		if submit.Valid {
			v.SubmitTime = &submit.Int64
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
