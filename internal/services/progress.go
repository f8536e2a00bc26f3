package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// rollup is the derived view over a scan's recommendation state set. Every
// persisted counter on UserProgress is refreshed from a rollup; nothing
// increments counters at call sites, so the counters cannot drift from the
// state set.
type rollup struct {
	Total      int
	Locked     int
	Active     int
	Completed  int
	Verified   int
	Skipped    int
	InProgress int

	SiteWideTotal     int
	SiteWideActive    int
	SiteWideCompleted int

	PageSpecificTotal     int
	PageSpecificCompleted int
}

func rollupFromCounts(counts []repos.StateCount) rollup {
	var r rollup
	for _, c := range counts {
		r.Total += c.Count
		switch c.UnlockState {
		case types.RecStateLocked:
			r.Locked += c.Count
		case types.RecStateActive:
			r.Active += c.Count
		case types.RecStateCompleted:
			r.Completed += c.Count
		case types.RecStateVerified:
			r.Verified += c.Count
		case types.RecStateSkipped:
			r.Skipped += c.Count
		case types.RecStateInProgress:
			r.InProgress += c.Count
		}
		resolved := c.UnlockState == types.RecStateCompleted || c.UnlockState == types.RecStateVerified
		switch c.RecType {
		case types.RecTypeSiteWide:
			r.SiteWideTotal += c.Count
			if c.UnlockState == types.RecStateActive {
				r.SiteWideActive += c.Count
			}
			if resolved {
				r.SiteWideCompleted += c.Count
			}
		case types.RecTypePageSpecific:
			r.PageSpecificTotal += c.Count
			if resolved {
				r.PageSpecificCompleted += c.Count
			}
		}
	}
	return r
}

func rollupFromRows(rows []*types.Recommendation) rollup {
	counts := make([]repos.StateCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, repos.StateCount{RecType: row.RecType, UnlockState: row.UnlockState, Count: 1})
	}
	return rollupFromCounts(counts)
}

// applyRollup writes derived counts onto the aggregate. The completed
// counter includes verified rows so that
// active + locked + completed + skipped + in_progress == total always holds
// (verified is a refinement of completed, tracked separately).
func applyRollup(p *types.UserProgress, r rollup) {
	p.TotalRecommendations = r.Total
	p.ActiveRecommendations = r.Active
	p.CompletedRecommendations = r.Completed + r.Verified
	p.VerifiedRecommendations = r.Verified
	p.SiteWideTotal = r.SiteWideTotal
	p.SiteWideActive = r.SiteWideActive
	p.SiteWideCompleted = r.SiteWideCompleted
	p.PageSpecificTotal = r.PageSpecificTotal
	p.PageSpecificCompleted = r.PageSpecificCompleted
}

func rollupUpdates(r rollup) map[string]interface{} {
	return map[string]interface{}{
		"total_recommendations":     r.Total,
		"active_recommendations":    r.Active,
		"completed_recommendations": r.Completed + r.Verified,
		"verified_recommendations":  r.Verified,
		"site_wide_total":           r.SiteWideTotal,
		"site_wide_active":          r.SiteWideActive,
		"site_wide_completed":       r.SiteWideCompleted,
		"page_specific_total":       r.PageSpecificTotal,
		"page_specific_completed":   r.PageSpecificCompleted,
	}
}

type ProgressService interface {
	Get(ctx context.Context, userID, scanID uuid.UUID) (*types.UserProgress, error)
	// Sync recomputes every counter from the recommendation state set and
	// persists it. Must run inside the same transaction as the transition
	// that changed the state set.
	Sync(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	recs     repos.RecommendationRepo
	progress repos.UserProgressRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recs repos.RecommendationRepo,
	progress repos.UserProgressRepo,
) ProgressService {
	return &progressService{
		db:       db,
		log:      baseLog.With("service", "ProgressService"),
		recs:     recs,
		progress: progress,
	}
}

func (s *progressService) Get(ctx context.Context, userID, scanID uuid.UUID) (*types.UserProgress, error) {
	dbc := dbctx.Context{Ctx: ctx}
	prog, err := s.progress.GetByUserScan(dbc, userID, scanID)
	if err != nil {
		return nil, fmt.Errorf("load user progress: %w", err)
	}
	if prog == nil {
		return nil, apperr.ErrNotFound
	}
	return prog, nil
}

func (s *progressService) Sync(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error) {
	prog, err := s.progress.GetByUserScan(dbc, userID, scanID)
	if err != nil {
		return nil, fmt.Errorf("load user progress: %w", err)
	}
	if prog == nil {
		return nil, apperr.ErrNotFound
	}
	counts, err := s.recs.CountStates(dbc, scanID)
	if err != nil {
		return nil, fmt.Errorf("count recommendation states: %w", err)
	}
	r := rollupFromCounts(counts)
	if err := s.progress.UpdateFields(dbc, prog.ID, rollupUpdates(r)); err != nil {
		return nil, fmt.Errorf("update user progress: %w", err)
	}
	applyRollup(prog, r)
	return prog, nil
}
