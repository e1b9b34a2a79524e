package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/SeSAC-Ermes/Epari-backend-sub000/internal/api/http"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/audit"
	auth "github.com/SeSAC-Ermes/Epari-backend-sub000/internal/auth/middleware"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/config"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/db"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/exam"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/grading"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/rbac"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/roster"
	"github.com/SeSAC-Ermes/Epari-backend-sub000/internal/sweep"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	store := exam.NewSQLStore(dbh)
	events := audit.NewEventRepo(dbh)
	ro := roster.NewSQLRoster(dbh)
	svc := exam.NewService(store, events, time.Now)
	grader := grading.New(store, events, log.Default())

	// --- Scheduler ---
	sweeper := sweep.New(store, ro, grader, time.Now, cfg.SweepInterval, log.Default())
	sweeper.Start()

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Instructor surfaces
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.UploadExamHandler(store))
		pr.With(rbac.Require("exam:enroll")).
			Post("/exams/{examID}/enrollments", api.EnrollHandler(ro))
		pr.With(rbac.Require("stats:view")).
			Get("/exams/{examID}/stats", api.ExamStatsHandler(store))
		pr.With(rbac.RequireAny("attempt:view-all", "stats:view")).
			Get("/exams/{examID}/results", api.ExamResultsHandler(store))

		// Student flow
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("attempt:start")).
			Post("/exams/{examID}/attempts", api.StartAttemptHandler(svc, ro))
		pr.With(rbac.Require("attempt:save")).
			Post("/exams/{examID}/questions/{questionID}/draft", api.SaveDraftHandler(svc, ro))
		pr.With(rbac.Require("attempt:save")).
			Post("/exams/{examID}/questions/{questionID}/answer", api.SubmitAnswerHandler(svc, ro))
		pr.With(rbac.Require("attempt:submit")).
			Post("/exams/{examID}/submit", api.FinishAttemptHandler(svc, ro))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/exams/{examID}/attempt", api.AttemptStatusHandler(svc, ro))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("listening on %s (db=%s, sweep=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.SweepInterval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("shutting down")
	sweeper.Stop()
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
