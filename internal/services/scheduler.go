package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/config"
	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// ReplacementResult is the outcome of one replacement check. AllUnlocked is
// a success shape, not an error: every recommendation has already been
// unlocked and there is nothing left to schedule.
type ReplacementResult struct {
	Performed           bool       `json:"performed"`
	UnlockedCount       int        `json:"unlocked_count"`
	DaysUntilNext       int        `json:"days_until_next"`
	AllUnlocked         bool       `json:"all_unlocked"`
	NextReplacementDate *time.Time `json:"next_replacement_date,omitempty"`
}

type SchedulerService interface {
	// CheckAndReplace runs one replacement cycle for a scan if it is due.
	// The whole cycle is one transaction holding a FOR UPDATE lock on the
	// user_progress row, so concurrent readers of the same scan perform at
	// most one unlock batch per due cycle: the first claims the cycle and
	// advances next_replacement_date, later ones observe the advanced date
	// and no-op. force bypasses the date gate but never the active-count cap.
	CheckAndReplace(ctx context.Context, userID, scanID uuid.UUID, now time.Time, force bool) (*ReplacementResult, error)
}

type schedulerService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      config.Config
	recs     repos.RecommendationRepo
	progress repos.UserProgressRepo
}

func NewSchedulerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.Config,
	recs repos.RecommendationRepo,
	progress repos.UserProgressRepo,
) SchedulerService {
	return &schedulerService{
		db:       db,
		log:      baseLog.With("service", "SchedulerService"),
		cfg:      cfg,
		recs:     recs,
		progress: progress,
	}
}

func (s *schedulerService) CheckAndReplace(ctx context.Context, userID, scanID uuid.UUID, now time.Time, force bool) (*ReplacementResult, error) {
	var result *ReplacementResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		prog, err := s.progress.LockByUserScan(dbc, userID, scanID)
		if err != nil {
			return fmt.Errorf("lock user progress: %w", err)
		}
		if prog == nil {
			return apperr.ErrNotFound
		}

		if !force && prog.NextReplacementDate != nil && now.Before(*prog.NextReplacementDate) {
			result = &ReplacementResult{
				Performed:           false,
				DaysUntilNext:       daysUntil(now, *prog.NextReplacementDate),
				NextReplacementDate: prog.NextReplacementDate,
			}
			return nil
		}

		counts, err := s.recs.CountStates(dbc, scanID)
		if err != nil {
			return fmt.Errorf("count recommendation states: %w", err)
		}
		r := rollupFromCounts(counts)

		if r.Locked == 0 {
			// Nothing left to unlock, ever. Clearing the schedule stops
			// every future read from re-entering the due branch.
			if err := s.progress.UpdateFields(dbc, prog.ID, map[string]interface{}{
				"next_replacement_date": nil,
			}); err != nil {
				return fmt.Errorf("clear replacement schedule: %w", err)
			}
			result = &ReplacementResult{Performed: false, AllUnlocked: true}
			return nil
		}

		slots := prog.TargetActiveCount - r.Active
		unlocked := 0
		batch := prog.CurrentBatch
		if slots > 0 {
			locked, err := s.recs.ListLockedByScan(dbc, scanID, slots)
			if err != nil {
				return fmt.Errorf("list locked recommendations: %w", err)
			}
			if len(locked) > 0 {
				batch = prog.CurrentBatch + 1
				ids := make([]uuid.UUID, 0, len(locked))
				for _, row := range locked {
					ids = append(ids, row.ID)
				}
				skipAt := now.Add(s.cfg.SkipDelay)
				if err := s.recs.UpdateFieldsByIDs(dbc, ids, map[string]interface{}{
					"unlock_state":    types.RecStateActive,
					"unlocked_at":     now.UTC(),
					"skip_enabled_at": skipAt.UTC(),
					"batch_number":    batch,
				}); err != nil {
					return fmt.Errorf("unlock recommendations: %w", err)
				}
				unlocked = len(ids)
			}
		}

		// Claim-and-advance: the unlock batch and the schedule move together
		// or not at all.
		next := now.Add(s.cfg.ReplacementInterval)
		counts, err = s.recs.CountStates(dbc, scanID)
		if err != nil {
			return fmt.Errorf("recount recommendation states: %w", err)
		}
		r = rollupFromCounts(counts)
		updates := rollupUpdates(r)
		updates["last_replacement_date"] = now.UTC()
		updates["next_replacement_date"] = next.UTC()
		updates["current_batch"] = batch
		updates["recommendations_replaced_count"] = prog.RecommendationsReplacedCount + unlocked
		if err := s.progress.UpdateFields(dbc, prog.ID, updates); err != nil {
			return fmt.Errorf("advance replacement schedule: %w", err)
		}

		nextUTC := next.UTC()
		result = &ReplacementResult{
			Performed:           true,
			UnlockedCount:       unlocked,
			DaysUntilNext:       daysUntil(now, nextUTC),
			NextReplacementDate: &nextUTC,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Performed {
		s.log.Info("Replacement cycle executed",
			"scan_id", scanID, "unlocked", result.UnlockedCount, "forced", force)
	}
	return result, nil
}
