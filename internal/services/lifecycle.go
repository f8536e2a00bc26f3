package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// legalTransitions is the full lifecycle graph. Skip additionally requires
// now >= skip_enabled_at; that guard lives in Skip, not here.
var legalTransitions = map[string]map[string]bool{
	types.RecStateLocked: {
		types.RecStateActive: true,
	},
	types.RecStateActive: {
		types.RecStateCompleted: true,
		types.RecStateSkipped:   true,
	},
	types.RecStateInProgress: {
		types.RecStateCompleted: true,
	},
	types.RecStateCompleted: {
		types.RecStateVerified: true,
	},
}

func canTransition(from, to string) bool {
	return legalTransitions[from][to]
}

type LifecycleService interface {
	// MarkImplemented moves an unlocked recommendation to completed.
	MarkImplemented(ctx context.Context, recommendationID uuid.UUID) (*types.Recommendation, error)
	// Skip resolves an active recommendation, legal only once the skip
	// window has opened (5 days after unlock).
	Skip(ctx context.Context, recommendationID uuid.UUID, now time.Time) (*types.Recommendation, error)
	// ConfirmAutoDetection resolves an auto-detected implementation: a
	// confirmation promotes the completed recommendation to verified, a
	// rejection reopens it to active.
	ConfirmAutoDetection(ctx context.Context, recommendationID uuid.UUID, confirmed bool) (*types.Recommendation, error)
}

type lifecycleService struct {
	db       *gorm.DB
	log      *logger.Logger
	recs     repos.RecommendationRepo
	progress ProgressService
}

func NewLifecycleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recs repos.RecommendationRepo,
	progress ProgressService,
) LifecycleService {
	return &lifecycleService{
		db:       db,
		log:      baseLog.With("service", "LifecycleService"),
		recs:     recs,
		progress: progress,
	}
}

func (s *lifecycleService) MarkImplemented(ctx context.Context, recommendationID uuid.UUID) (*types.Recommendation, error) {
	var out *types.Recommendation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rec, err := s.recs.GetByID(dbc, recommendationID)
		if err != nil {
			return fmt.Errorf("load recommendation: %w", err)
		}
		if rec == nil {
			return apperr.ErrNotFound
		}
		if !canTransition(rec.UnlockState, types.RecStateCompleted) {
			return &apperr.InvalidTransitionError{
				From:   rec.UnlockState,
				To:     types.RecStateCompleted,
				Reason: "only an unlocked recommendation can be marked implemented",
			}
		}
		now := time.Now().UTC()
		if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
			"unlock_state":       types.RecStateCompleted,
			"marked_complete_at": now,
		}); err != nil {
			return fmt.Errorf("update recommendation: %w", err)
		}
		if _, err := s.progress.Sync(dbc, rec.UserID, rec.ScanID); err != nil {
			return err
		}
		rec.UnlockState = types.RecStateCompleted
		rec.MarkedCompleteAt = &now
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Recommendation marked implemented", "recommendation_id", recommendationID)
	return out, nil
}

func (s *lifecycleService) Skip(ctx context.Context, recommendationID uuid.UUID, now time.Time) (*types.Recommendation, error) {
	var out *types.Recommendation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rec, err := s.recs.GetByID(dbc, recommendationID)
		if err != nil {
			return fmt.Errorf("load recommendation: %w", err)
		}
		if rec == nil {
			return apperr.ErrNotFound
		}
		if !canTransition(rec.UnlockState, types.RecStateSkipped) {
			return &apperr.InvalidTransitionError{
				From:   rec.UnlockState,
				To:     types.RecStateSkipped,
				Reason: "only an active recommendation can be skipped",
			}
		}
		if rec.SkipEnabledAt != nil && now.Before(*rec.SkipEnabledAt) {
			return &apperr.InvalidTransitionError{
				From:          rec.UnlockState,
				To:            types.RecStateSkipped,
				Reason:        "skip window has not opened yet",
				DaysRemaining: daysUntil(now, *rec.SkipEnabledAt),
			}
		}
		if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
			"unlock_state": types.RecStateSkipped,
			"skipped_at":   now.UTC(),
		}); err != nil {
			return fmt.Errorf("update recommendation: %w", err)
		}
		if _, err := s.progress.Sync(dbc, rec.UserID, rec.ScanID); err != nil {
			return err
		}
		skipped := now.UTC()
		rec.UnlockState = types.RecStateSkipped
		rec.SkippedAt = &skipped
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Recommendation skipped", "recommendation_id", recommendationID)
	return out, nil
}

func (s *lifecycleService) ConfirmAutoDetection(ctx context.Context, recommendationID uuid.UUID, confirmed bool) (*types.Recommendation, error) {
	var out *types.Recommendation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rec, err := s.recs.GetByID(dbc, recommendationID)
		if err != nil {
			return fmt.Errorf("load recommendation: %w", err)
		}
		if rec == nil {
			return apperr.ErrNotFound
		}
		if rec.ValidationStatus == nil || *rec.ValidationStatus != types.ValidationStatusAutoDetected {
			return &apperr.InvalidTransitionError{
				From:   rec.UnlockState,
				To:     types.RecStateVerified,
				Reason: "recommendation has no pending auto-detection",
			}
		}
		now := time.Now().UTC()
		updates := map[string]interface{}{}
		if confirmed {
			if !canTransition(rec.UnlockState, types.RecStateVerified) {
				return &apperr.InvalidTransitionError{
					From:   rec.UnlockState,
					To:     types.RecStateVerified,
					Reason: "only a completed recommendation can be verified",
				}
			}
			updates["unlock_state"] = types.RecStateVerified
			updates["verified_at"] = now
			updates["validation_status"] = types.OutcomeVerifiedComplete
			rec.UnlockState = types.RecStateVerified
			rec.VerifiedAt = &now
		} else {
			updates["unlock_state"] = types.RecStateActive
			updates["marked_complete_at"] = nil
			updates["validation_status"] = nil
			rec.UnlockState = types.RecStateActive
			rec.MarkedCompleteAt = nil
			rec.ValidationStatus = nil
		}
		if err := s.recs.UpdateFields(dbc, rec.ID, updates); err != nil {
			return fmt.Errorf("update recommendation: %w", err)
		}
		if _, err := s.progress.Sync(dbc, rec.UserID, rec.ScanID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Auto-detection resolved", "recommendation_id", recommendationID, "confirmed", confirmed)
	return out, nil
}

// daysUntil rounds up so a window opening in 30 minutes still reports one
// remaining day to the user.
func daysUntil(now, until time.Time) int {
	if !now.Before(until) {
		return 0
	}
	return int(math.Ceil(until.Sub(now).Hours() / 24))
}
