package exam

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests and offline development. It gives
// the same transition guarantees as SQLStore: every mutation checks the
// result's current status under the lock.
type MemStore struct {
	mu      sync.Mutex
	exams   map[string]Exam
	results map[string]Result            // by result id
	byPair  map[string]string            // examID|studentID -> result id
	scores  map[string]map[string]Score  // result id -> question id -> score
	seq     int
}

func NewMemStore() *MemStore {
	return &MemStore{
		exams:   map[string]Exam{},
		results: map[string]Result{},
		byPair:  map[string]string{},
		scores:  map[string]map[string]Score{},
	}
}

func pairKey(examID, studentID string) string { return examID + "|" + studentID }

func (m *MemStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = e
	return nil
}

func (m *MemStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := m.GetExamWithKeys(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	qs := make([]Question, len(e.Questions))
	copy(qs, e.Questions)
	for i := range qs {
		qs[i].CorrectAnswer = ""
	}
	e.Questions = qs
	return e, nil
}

func (m *MemStore) GetExamWithKeys(_ context.Context, id string) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *MemStore) CreateResult(_ context.Context, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPair[pairKey(r.ExamID, r.StudentID)]; ok {
		return m.loadResult(id), nil
	}
	m.seq++
	r.ID = fmt.Sprintf("result-%d", m.seq)
	r.Version = 1
	m.results[r.ID] = r
	m.byPair[pairKey(r.ExamID, r.StudentID)] = r.ID
	m.scores[r.ID] = map[string]Score{}
	return m.loadResult(r.ID), nil
}

func (m *MemStore) GetResult(_ context.Context, examID, studentID string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[pairKey(examID, studentID)]
	if !ok {
		return Result{}, ErrResultNotFound
	}
	return m.loadResult(id), nil
}

func (m *MemStore) GetResultByID(_ context.Context, id string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[id]; !ok {
		return Result{}, ErrResultNotFound
	}
	return m.loadResult(id), nil
}

// loadResult copies the row plus its scores; callers hold the lock.
func (m *MemStore) loadResult(id string) Result {
	r := m.results[id]
	for _, sc := range m.scores[id] {
		r.Scores = append(r.Scores, sc)
	}
	return r
}

func (m *MemStore) UpsertScore(_ context.Context, resultID string, sc Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[resultID]
	if !ok {
		return ErrResultNotFound
	}
	if r.Status != StatusInProgress {
		return ErrAlreadySubmitted
	}
	r.Version++
	m.results[resultID] = r

	existing, ok := m.scores[resultID][sc.QuestionID]
	if ok {
		existing.AnswerText = sc.AnswerText
		existing.Temporary = sc.Temporary
		m.scores[resultID][sc.QuestionID] = existing
		return nil
	}
	m.seq++
	sc.ID = fmt.Sprintf("score-%d", m.seq)
	sc.ResultID = resultID
	m.scores[resultID][sc.QuestionID] = sc
	return nil
}

func (m *MemStore) FinishResult(_ context.Context, resultID string, submitTime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[resultID]
	if !ok {
		return ErrResultNotFound
	}
	if r.Status != StatusInProgress {
		return ErrAlreadySubmitted
	}
	r.Status = StatusSubmitted
	r.SubmitTime = &submitTime
	r.Version++
	m.results[resultID] = r
	for qid, sc := range m.scores[resultID] {
		sc.Temporary = false
		m.scores[resultID][qid] = sc
	}
	return nil
}

func (m *MemStore) ApplyGrades(_ context.Context, resultID string, earned map[string]int, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[resultID]
	if !ok {
		return ErrResultNotFound
	}
	if r.Status != StatusSubmitted {
		return ErrNotSubmitted
	}
	r.Status = StatusGraded
	r.TotalScore = total
	r.Version++
	m.results[resultID] = r
	for qid, pts := range earned {
		if sc, ok := m.scores[resultID][qid]; ok {
			sc.EarnedScore = pts
			m.scores[resultID][qid] = sc
		}
	}
	return nil
}

func (m *MemStore) ListExpiredInProgress(_ context.Context, now int64) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Result
	for id, r := range m.results {
		if r.Status != StatusInProgress {
			continue
		}
		e, ok := m.exams[r.ExamID]
		if !ok || now < e.EndAt() {
			continue
		}
		out = append(out, m.loadResult(id))
	}
	return out, nil
}

func (m *MemStore) ListSubmittedUngraded(_ context.Context) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Result
	for id, r := range m.results {
		if r.Status == StatusSubmitted {
			out = append(out, m.loadResult(id))
		}
	}
	return out, nil
}

func (m *MemStore) ListElapsedExams(_ context.Context, now int64) ([]Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Exam
	for _, e := range m.exams {
		if now >= e.EndAt() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemStore) ExamStats(ctx context.Context, examID string) (Stats, error) {
	views, err := m.ListResultViews(ctx, examID)
	if err != nil {
		return Stats{}, err
	}
	return statsFromViews(examID, views), nil
}

func (m *MemStore) ListResultViews(_ context.Context, examID string) ([]ResultView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ResultView
	for _, r := range m.results {
		if r.ExamID != examID {
			continue
		}
		out = append(out, ResultView{
			ResultID:   r.ID,
			StudentID:  r.StudentID,
			Status:     r.Status,
			SubmitTime: r.SubmitTime,
			TotalScore: r.TotalScore,
		})
	}
	return out, nil
}
