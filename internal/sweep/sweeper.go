// Package sweep hosts the background task that closes out expired exam
// attempts and feeds them to the grading engine.
package sweep

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/grading"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
)

// Sweeper periodically force-finishes attempts whose window has elapsed,
// synthesizes not_submitted results for enrolled students who never started,
// and hands everything submitted to the grading engine. One owned instance is
// constructed at process start; Start and Stop bound its lifecycle.
type Sweeper struct {
	store    exam.Store
	roster   roster.Roster
	grader   *grading.Engine
	now      exam.Clock
	interval time.Duration
	logger   *log.Logger

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func New(store exam.Store, ro roster.Roster, grader *grading.Engine, now exam.Clock, interval time.Duration, logger *log.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		store:    store,
		roster:   ro,
		grader:   grader,
		now:      now,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. Each sweep runs to completion; ticks that
// fire while a previous sweep is still running are skipped, so two sweeps
// never overlap.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop to exit. An in-flight sweep
// finishes on its own goroutine before the process tears down the store.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Printf("sweep: previous run still active, skipping tick")
		return
	}
	defer s.running.Store(false)
	s.Sweep(context.Background())
}

// Sweep executes one pass. Failures are isolated per attempt: one bad row is
// logged and skipped, and the next sweep retries anything still non-terminal.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	s.closeExpired(ctx, now)
	s.fillAbsentees(ctx, now)
	if _, err := s.grader.GradeSubmitted(ctx); err != nil {
		s.logger.Printf("sweep: grade pass: %v", err)
	}
}

func (s *Sweeper) closeExpired(ctx context.Context, now time.Time) {
	expired, err := s.store.ListExpiredInProgress(ctx, now.Unix())
	if err != nil {
		s.logger.Printf("sweep: list expired: %v", err)
		return
	}
	for _, r := range expired {
		err := s.store.FinishResult(ctx, r.ID, now.Unix())
		if errors.Is(err, exam.ErrAlreadySubmitted) {
			// The student won the race; nothing to do.
			continue
		}
		if err != nil {
			s.logger.Printf("sweep: force finish result %s: %v", r.ID, err)
		}
	}
}

func (s *Sweeper) fillAbsentees(ctx context.Context, now time.Time) {
	exams, err := s.store.ListElapsedExams(ctx, now.Unix())
	if err != nil {
		s.logger.Printf("sweep: list elapsed exams: %v", err)
		return
	}
	submitTime := now.Unix()
	for _, e := range exams {
		students, err := s.roster.ListEnrolled(ctx, e.ID)
		if err != nil {
			s.logger.Printf("sweep: roster for exam %s: %v", e.ID, err)
			continue
		}
		for _, studentID := range students {
			_, err := s.store.GetResult(ctx, e.ID, studentID)
			if err == nil {
				continue
			}
			if !errors.Is(err, exam.ErrResultNotFound) {
				s.logger.Printf("sweep: lookup result exam %s student %s: %v", e.ID, studentID, err)
				continue
			}
			st := submitTime
			if _, err := s.store.CreateResult(ctx, exam.Result{
				ExamID:     e.ID,
				StudentID:  studentID,
				Status:     exam.StatusNotSubmitted,
				SubmitTime: &st,
				CreatedAt:  submitTime,
			}); err != nil {
				s.logger.Printf("sweep: synthesize result exam %s student %s: %v", e.ID, studentID, err)
			}
		}
	}
}
