package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/config"
	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type ValidationSummary struct {
	FirstScan         bool `json:"first_scan"`
	Checked           int  `json:"checked"`
	Verified          int  `json:"verified"`
	Partial           int  `json:"partial"`
	NotImplemented    int  `json:"not_implemented"`
	Regressed         int  `json:"regressed"`
	SuccessorsCreated int  `json:"successors_created"`
}

type ValidationService interface {
	// ValidateScan re-checks every recommendation marked completed on the
	// prior scan of the same domain against the new scan's evidence bundle.
	// Safe to retry: successors are deduped per (original, new scan) and
	// audit rows conflict-ignore on the same key.
	ValidateScan(ctx context.Context, userID, newScanID uuid.UUID) (*ValidationSummary, error)
}

type validationService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      config.Config
	scans    repos.ScanRepo
	recs     repos.RecommendationRepo
	records  repos.ValidationRecordRepo
	progress ProgressService
	registry *validatorRegistry
}

func NewValidationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.Config,
	scans repos.ScanRepo,
	recs repos.RecommendationRepo,
	records repos.ValidationRecordRepo,
	progress ProgressService,
) ValidationService {
	return &validationService{
		db:       db,
		log:      baseLog.With("service", "ValidationService"),
		cfg:      cfg,
		scans:    scans,
		recs:     recs,
		records:  records,
		progress: progress,
		registry: newValidatorRegistry(),
	}
}

func (s *validationService) ValidateScan(ctx context.Context, userID, newScanID uuid.UUID) (*ValidationSummary, error) {
	dbc := dbctx.Context{Ctx: ctx}

	scan, err := s.scans.GetByID(dbc, newScanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	if scan == nil {
		return nil, apperr.ErrNotFound
	}

	prev, err := s.scans.GetPreviousForDomain(dbc, userID, scan.Domain, scan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load previous scan: %w", err)
	}
	if prev == nil {
		return &ValidationSummary{FirstScan: true}, nil
	}

	completed, err := s.recs.ListByScanAndStates(dbc, prev.ID, []string{types.RecStateCompleted})
	if err != nil {
		return nil, fmt.Errorf("load completed recommendations: %w", err)
	}

	ev, err := types.ParseEvidence(scan.Evidence)
	if err != nil {
		return nil, fmt.Errorf("parse evidence bundle: %w", err)
	}

	summary := &ValidationSummary{Checked: len(completed)}
	for _, rec := range completed {
		res := s.registry.For(rec).Validate(ev)

		if res.Outcome == types.OutcomeNotImplemented {
			regressed, err := s.hadPriorEvidence(dbc, rec.ID)
			if err != nil {
				s.log.Warn("Regression check failed, keeping not_implemented outcome",
					"recommendation_id", rec.ID, "error", err)
			} else if regressed {
				res.Outcome = types.OutcomeRegressed
			}
		}

		if err := s.applyOutcome(ctx, scan, rec, res, summary); err != nil {
			return nil, err
		}
		s.writeAudit(dbc, scan, rec, res)
	}

	s.log.Info("Scan validation finished",
		"scan_id", newScanID,
		"previous_scan_id", prev.ID,
		"checked", summary.Checked,
		"verified", summary.Verified,
		"partial", summary.Partial,
		"regressed", summary.Regressed)
	return summary, nil
}

func (s *validationService) applyOutcome(ctx context.Context, scan *types.Scan, rec *types.Recommendation, res ValidationResult, summary *ValidationSummary) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		switch res.Outcome {
		case types.OutcomeVerifiedComplete:
			now := time.Now().UTC()
			if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"unlock_state":            types.RecStateVerified,
				"verified_at":             now,
				"validation_status":       types.OutcomeVerifiedComplete,
				"implementation_progress": 100,
			}); err != nil {
				return fmt.Errorf("verify recommendation: %w", err)
			}
			if _, err := s.progress.Sync(dbc, rec.UserID, rec.ScanID); err != nil {
				return err
			}
			summary.Verified++

		case types.OutcomePartialProgress:
			if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"validation_status":       types.OutcomePartialProgress,
				"implementation_progress": res.CompletionPct,
			}); err != nil {
				return fmt.Errorf("annotate partial recommendation: %w", err)
			}
			summary.Partial++
			if !res.Requeueable {
				return nil
			}
			created, err := s.createSuccessor(dbc, scan, rec, res)
			if err != nil {
				return err
			}
			if created {
				summary.SuccessorsCreated++
			}

		case types.OutcomeRegressed:
			// The original stays completed; regression is an annotation,
			// not a state transition.
			if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"validation_status": types.OutcomeRegressed,
			}); err != nil {
				return fmt.Errorf("annotate regressed recommendation: %w", err)
			}
			summary.Regressed++

		default:
			if err := s.recs.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"validation_status": types.OutcomeNotImplemented,
			}); err != nil {
				return fmt.Errorf("annotate recommendation: %w", err)
			}
			summary.NotImplemented++
		}
		return nil
	})
}

// createSuccessor spawns the follow-up in_progress recommendation for a
// partial implementation. The (original, new scan) existence check makes a
// retried scan-completion handler a no-op.
func (s *validationService) createSuccessor(dbc dbctx.Context, scan *types.Scan, rec *types.Recommendation, res ValidationResult) (bool, error) {
	existing, err := s.recs.GetSuccessor(dbc, rec.ID, scan.ID)
	if err != nil {
		return false, fmt.Errorf("check existing successor: %w", err)
	}
	if existing != nil {
		s.log.Debug("Successor already exists, skipping",
			"recommendation_id", rec.ID, "scan_id", scan.ID, "successor_id", existing.ID)
		return false, nil
	}

	title := res.RemainingTitle
	if title == "" {
		title = "Finish: " + rec.Title
	}
	notes, _ := json.Marshal(map[string]interface{}{
		"working": res.Found,
		"missing": res.Missing,
	})

	now := time.Now().UTC()
	skipAt := now.Add(s.cfg.SkipDelay)
	successor := &types.Recommendation{
		ID:                       uuid.New(),
		ScanID:                   scan.ID,
		UserID:                   rec.UserID,
		Category:                 rec.Category,
		Title:                    title,
		Text:                     rec.Text,
		Priority:                 rec.Priority,
		EstimatedImpact:          rec.EstimatedImpact,
		Effort:                   rec.Effort,
		RecType:                  rec.RecType,
		PageURL:                  rec.PageURL,
		UnlockState:              types.RecStateInProgress,
		BatchNumber:              1,
		UnlockedAt:               &now,
		SkipEnabledAt:            &skipAt,
		ImplementationProgress:   res.CompletionPct,
		PreviousRecommendationID: &rec.ID,
		SourceScanID:             &scan.ID,
		Notes:                    datatypes.JSON(notes),
	}
	if _, err := s.recs.Create(dbc, []*types.Recommendation{successor}); err != nil {
		return false, fmt.Errorf("create successor recommendation: %w", err)
	}
	if _, err := s.progress.Sync(dbc, scan.UserID, scan.ID); err != nil {
		// The new scan may not have a progress row yet when validation runs
		// before classification; the classifier will seed correct totals.
		if err != apperr.ErrNotFound {
			return false, err
		}
	}
	return true, nil
}

// writeAudit appends the immutable ValidationRecord. The audit store being
// unavailable never fails validation; only the write is skipped.
func (s *validationService) writeAudit(dbc dbctx.Context, scan *types.Scan, rec *types.Recommendation, res ValidationResult) {
	found, _ := json.Marshal(res.Found)
	missing, _ := json.Marshal(res.Missing)
	row := &types.ValidationRecord{
		ID:                   uuid.New(),
		RecommendationID:     rec.ID,
		ScanID:               scan.ID,
		UserID:               rec.UserID,
		Subfactor:            res.Subfactor,
		WasImplemented:       res.Outcome == types.OutcomeVerifiedComplete,
		IsPartial:            res.Outcome == types.OutcomePartialProgress,
		CompletionPercentage: res.CompletionPct,
		FoundElements:        datatypes.JSON(found),
		MissingElements:      datatypes.JSON(missing),
		Outcome:              res.Outcome,
		Notes:                res.Notes,
	}
	if _, err := s.records.Create(dbc, []*types.ValidationRecord{row}); err != nil {
		s.log.Warn("Audit write skipped",
			"recommendation_id", rec.ID, "scan_id", scan.ID, "error", err)
	}
}

// hadPriorEvidence reports whether an earlier scan ever saw this fix in
// place (fully or partially). A not_implemented verdict after prior
// evidence means the fix was undone, which is a regression rather than a
// never-started recommendation.
func (s *validationService) hadPriorEvidence(dbc dbctx.Context, recommendationID uuid.UUID) (bool, error) {
	history, err := s.records.ListByRecommendation(dbc, recommendationID)
	if err != nil {
		return false, err
	}
	for _, h := range history {
		if h.WasImplemented || h.CompletionPercentage > 0 {
			return true, nil
		}
	}
	return false, nil
}
