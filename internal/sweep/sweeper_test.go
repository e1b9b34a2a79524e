package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/grading"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/sweep"
)

var examStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *exam.MemStore
	roster  *roster.MemRoster
	svc     *exam.Service
	sweeper *sweep.Sweeper
}

func newFixture(t *testing.T, now func() time.Time) *fixture {
	t.Helper()
	store := exam.NewMemStore()
	ro := roster.NewMemRoster()
	ctx := context.Background()

	if err := store.PutExam(ctx, exam.Exam{
		ID:          "exam-1",
		Title:       "Quiz",
		StartAt:     examStart.Unix(),
		DurationMin: 60,
		TotalScore:  10,
		Questions: []exam.Question{
			{ID: "q1", Seq: 1, Type: exam.QuestionMultipleChoice, Weight: 10,
				Choices:       []exam.Choice{{Num: 1, Text: "a"}, {Num: 2, Text: "b"}},
				CorrectAnswer: "1"},
		},
	}); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	for _, s := range []string{"stu-1", "stu-2", "stu-3"} {
		if err := ro.Enroll(ctx, "exam-1", s); err != nil {
			t.Fatalf("enroll %s: %v", s, err)
		}
	}

	grader := grading.New(store, nil, nil)
	return &fixture{
		store:   store,
		roster:  ro,
		svc:     exam.NewService(store, nil, now),
		sweeper: sweep.New(store, ro, grader, now, time.Minute, nil),
	}
}

// After one sweep past the window, every enrolled student holds exactly one
// terminal result: starters are force-closed and graded, absentees get a
// synthesized not_submitted row.
func TestSweepRosterTotality(t *testing.T) {
	clock := examStart.Add(time.Minute)
	now := func() time.Time { return clock }
	f := newFixture(t, now)
	ctx := context.Background()

	// stu-1 answers and never finishes; stu-2 starts and walks away;
	// stu-3 never shows up.
	if _, err := f.svc.Start(ctx, "exam-1", "stu-1"); err != nil {
		t.Fatalf("start stu-1: %v", err)
	}
	if err := f.svc.SubmitAnswer(ctx, "exam-1", "stu-1", "q1", "1"); err != nil {
		t.Fatalf("answer stu-1: %v", err)
	}
	if _, err := f.svc.Start(ctx, "exam-1", "stu-2"); err != nil {
		t.Fatalf("start stu-2: %v", err)
	}

	clock = examStart.Add(61 * time.Minute)
	f.sweeper.Sweep(ctx)

	views, err := f.store.ListResultViews(ctx, "exam-1")
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 results, got %d", len(views))
	}
	byStudent := map[string]exam.ResultView{}
	for _, v := range views {
		if _, dup := byStudent[v.StudentID]; dup {
			t.Fatalf("duplicate result for %s", v.StudentID)
		}
		byStudent[v.StudentID] = v
	}
	if byStudent["stu-1"].Status != exam.StatusGraded {
		t.Fatalf("stu-1 status=%s want graded", byStudent["stu-1"].Status)
	}
	if byStudent["stu-1"].TotalScore != 10 {
		t.Fatalf("stu-1 score=%d want 10", byStudent["stu-1"].TotalScore)
	}
	if byStudent["stu-2"].Status != exam.StatusGraded {
		t.Fatalf("stu-2 status=%s want graded", byStudent["stu-2"].Status)
	}
	if byStudent["stu-2"].TotalScore != 0 {
		t.Fatalf("stu-2 score=%d want 0", byStudent["stu-2"].TotalScore)
	}
	if byStudent["stu-3"].Status != exam.StatusNotSubmitted {
		t.Fatalf("stu-3 status=%s want not_submitted", byStudent["stu-3"].Status)
	}
	if byStudent["stu-3"].SubmitTime == nil || *byStudent["stu-3"].SubmitTime != clock.Unix() {
		t.Fatalf("stu-3 submit time should be the sweep time")
	}
}

// A second sweep changes nothing: synthesized rows are not duplicated and
// graded attempts stay as they are.
func TestSweepIsStable(t *testing.T) {
	clock := examStart.Add(61 * time.Minute)
	now := func() time.Time { return clock }
	f := newFixture(t, now)
	ctx := context.Background()

	f.sweeper.Sweep(ctx)
	first, err := f.store.ListResultViews(ctx, "exam-1")
	if err != nil {
		t.Fatalf("views: %v", err)
	}

	clock = clock.Add(time.Minute)
	f.sweeper.Sweep(ctx)
	second, err := f.store.ListResultViews(ctx, "exam-1")
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 results on both sweeps, got %d then %d", len(first), len(second))
	}
	for _, v := range second {
		if v.Status != exam.StatusNotSubmitted {
			t.Fatalf("%s status=%s want not_submitted", v.StudentID, v.Status)
		}
	}
}

// Attempts still inside their window are left alone.
func TestSweepIgnoresOpenWindows(t *testing.T) {
	clock := examStart.Add(30 * time.Minute)
	now := func() time.Time { return clock }
	f := newFixture(t, now)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "exam-1", "stu-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.sweeper.Sweep(ctx)

	r, err := f.store.GetResult(ctx, "exam-1", "stu-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if r.Status != exam.StatusInProgress {
		t.Fatalf("status=%s want in_progress", r.Status)
	}
	views, _ := f.store.ListResultViews(ctx, "exam-1")
	if len(views) != 1 {
		t.Fatalf("sweeper must not synthesize rows before the window elapses, got %d", len(views))
	}
}

func TestStartStop(t *testing.T) {
	now := func() time.Time { return examStart }
	f := newFixture(t, now)
	f.sweeper.Start()
	done := make(chan struct{})
	go func() {
		f.sweeper.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
}
