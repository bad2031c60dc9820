package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/assessment"
	"github.com/noble-platform/adaptive-assessment-core/internal/config"
	"github.com/noble-platform/adaptive-assessment-core/internal/httpapi"
	"github.com/noble-platform/adaptive-assessment-core/internal/irt"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
	"github.com/noble-platform/adaptive-assessment-core/internal/recommend"
	"github.com/noble-platform/adaptive-assessment-core/internal/scorer"
	"github.com/noble-platform/adaptive-assessment-core/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	profRange := irt.DefaultProficiencyRange()

	engine := &assessment.Engine{
		Store:      db,
		Quadrature: irt.NewQuadrature(cfg.QuadratureSize),
		SessionTTL: cfg.SessionTTL,
		ProfRange:  profRange,
		RecommendConfig: recommend.Config{
			CoursesPerSkill:  cfg.RecommendationCoursesPerSkill,
			LessonsPerCourse: cfg.RecommendationLessonsPerCourse,
		},
		NewSpeakingScorer: func(c models.AssessmentConfig) scorer.Scorer {
			return scorer.NewSpeakingScorer(cfg.SpeakingScorerURL, cfg.SpeakingScorerTimeout, scorerToken(cfg))
		},
		NewWritingScorer: func(c models.AssessmentConfig) scorer.Scorer {
			return scorer.NewWritingScorer(cfg.WritingScorerURL, cfg.WritingScorerTimeout, scorerToken(cfg))
		},
		NewCatalog: func(ctx context.Context, pathwayID uuid.UUID) recommend.Catalog {
			return recommend.NewStoreCatalog(ctx, db, db, pathwayID)
		},
	}

	h := httpapi.NewHandler(engine, db)
	app := httpapi.NewApp(h, cfg.DefaultRequestDeadline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := store.NewExpiryScanner(db, cfg.ExpiryScanInterval)
	go func() {
		if err := scanner.Start(ctx); err != nil {
			log.Printf("expiry scanner stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}()

	log.Printf("adaptive assessment core listening on :%s", cfg.Port)
	if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func scorerToken(cfg *config.Config) func() string {
	return func() string { return cfg.ScorerServiceToken }
}
