// Package roster answers enrollment questions. The exam engine treats it as
// an external collaborator: the HTTP layer gates student operations on
// IsEnrolled, and the sweeper uses ListEnrolled to guarantee every enrolled
// student ends up with a terminal result.
package roster

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

type Roster interface {
	IsEnrolled(ctx context.Context, examID, studentID string) (bool, error)
	ListEnrolled(ctx context.Context, examID string) ([]string, error)
	Enroll(ctx context.Context, examID, studentID string) error
}

type SQLRoster struct{ db *sql.DB }

func NewSQLRoster(db *sql.DB) *SQLRoster { return &SQLRoster{db: db} }

func (r *SQLRoster) IsEnrolled(ctx context.Context, examID, studentID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments WHERE exam_id=$1 AND student_id=$2`,
		examID, studentID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

func (r *SQLRoster) ListEnrolled(ctx context.Context, examID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id FROM enrollments WHERE exam_id=$1 ORDER BY student_id`, examID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLRoster) Enroll(ctx context.Context, examID, studentID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO enrollments (exam_id, student_id) VALUES ($1,$2)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		examID, studentID)
	if err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	return nil
}

// MemRoster backs tests and offline development.
type MemRoster struct {
	mu     sync.Mutex
	byExam map[string]map[string]bool
}

func NewMemRoster() *MemRoster {
	return &MemRoster{byExam: map[string]map[string]bool{}}
}

func (r *MemRoster) IsEnrolled(_ context.Context, examID, studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byExam[examID][studentID], nil
}

func (r *MemRoster) ListEnrolled(_ context.Context, examID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.byExam[examID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemRoster) Enroll(_ context.Context, examID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byExam[examID] == nil {
		r.byExam[examID] = map[string]bool{}
	}
	r.byExam[examID][studentID] = true
	return nil
}
