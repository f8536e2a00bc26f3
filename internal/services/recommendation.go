package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// RecommendationList is what the presentation layer renders: the rows, the
// progress aggregate, and the replacement metadata from the lazy check that
// ran on this read.
type RecommendationList struct {
	Recommendations []*types.Recommendation `json:"recommendations"`
	Progress        *types.UserProgress     `json:"progress"`
	Replacement     *ReplacementResult      `json:"replacement"`
}

type RecommendationService interface {
	// ListForScan runs the lazy replacement check and returns the scan's
	// recommendations with progress and schedule metadata.
	ListForScan(ctx context.Context, userID, scanID uuid.UUID, now time.Time) (*RecommendationList, error)
	Get(ctx context.Context, recommendationID uuid.UUID) (*types.Recommendation, error)
}

type recommendationService struct {
	db        *gorm.DB
	log       *logger.Logger
	recs      repos.RecommendationRepo
	progress  repos.UserProgressRepo
	scheduler SchedulerService
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recs repos.RecommendationRepo,
	progress repos.UserProgressRepo,
	scheduler SchedulerService,
) RecommendationService {
	return &recommendationService{
		db:        db,
		log:       baseLog.With("service", "RecommendationService"),
		recs:      recs,
		progress:  progress,
		scheduler: scheduler,
	}
}

func (s *recommendationService) ListForScan(ctx context.Context, userID, scanID uuid.UUID, now time.Time) (*RecommendationList, error) {
	replacement, err := s.scheduler.CheckAndReplace(ctx, userID, scanID, now, false)
	if err != nil {
		return nil, fmt.Errorf("replacement check: %w", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.recs.ListByScan(dbc, scanID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	prog, err := s.progress.GetByUserScan(dbc, userID, scanID)
	if err != nil {
		return nil, fmt.Errorf("load user progress: %w", err)
	}
	if prog == nil {
		return nil, apperr.ErrNotFound
	}
	return &RecommendationList{
		Recommendations: rows,
		Progress:        prog,
		Replacement:     replacement,
	}, nil
}

func (s *recommendationService) Get(ctx context.Context, recommendationID uuid.UUID) (*types.Recommendation, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rec, err := s.recs.GetByID(dbc, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("load recommendation: %w", err)
	}
	if rec == nil {
		return nil, apperr.ErrNotFound
	}
	return rec, nil
}
