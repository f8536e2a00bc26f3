package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type PageInput struct {
	URL          string `json:"url"`
	PriorityRank int    `json:"priority_rank"`
}

// IntakeInput is one completed scan as delivered by the scoring engine and
// the recommendation generator together.
type IntakeInput struct {
	UserID          uuid.UUID           `json:"user_id"`
	Domain          string              `json:"domain"`
	Plan            string              `json:"plan"`
	TotalScore      int                 `json:"total_score"`
	CategoryScores  map[string]int      `json:"category_scores,omitempty"`
	Evidence        types.Evidence      `json:"evidence"`
	Pages           []PageInput         `json:"pages"`
	Recommendations []RawRecommendation `json:"recommendations"`
}

type IntakeResult struct {
	ScanID     uuid.UUID          `json:"scan_id"`
	SiteWide   int                `json:"site_wide"`
	PageCount  int                `json:"page_count"`
	Total      int                `json:"total"`
	Mode       *ModeResult        `json:"mode"`
	Validation *ValidationSummary `json:"validation"`
}

type ScanIntakeService interface {
	// IntakeScan persists the scan, classifies and seeds its
	// recommendations, re-evaluates the user's strategy mode, and validates
	// prior completed recommendations against the new evidence.
	IntakeScan(ctx context.Context, input IntakeInput) (*IntakeResult, error)
	Get(ctx context.Context, scanID uuid.UUID) (*types.Scan, error)
}

type scanIntakeService struct {
	db         *gorm.DB
	log        *logger.Logger
	scans      repos.ScanRepo
	pages      repos.SelectedPageRepo
	classifier ClassifierService
	mode       ModeService
	validation ValidationService
}

func NewScanIntakeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scans repos.ScanRepo,
	pages repos.SelectedPageRepo,
	classifier ClassifierService,
	mode ModeService,
	validation ValidationService,
) ScanIntakeService {
	return &scanIntakeService{
		db:         db,
		log:        baseLog.With("service", "ScanIntakeService"),
		scans:      scans,
		pages:      pages,
		classifier: classifier,
		mode:       mode,
		validation: validation,
	}
}

func (s *scanIntakeService) Get(ctx context.Context, scanID uuid.UUID) (*types.Scan, error) {
	row, err := s.scans.GetByID(dbctx.Context{Ctx: ctx}, scanID)
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	if row == nil {
		return nil, apperr.ErrNotFound
	}
	return row, nil
}

func (s *scanIntakeService) IntakeScan(ctx context.Context, input IntakeInput) (*IntakeResult, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id: %w", apperr.ErrInvalidArgument)
	}
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	if domain == "" {
		return nil, fmt.Errorf("missing domain: %w", apperr.ErrInvalidArgument)
	}

	scores, _ := json.Marshal(input.CategoryScores)
	evidence, err := json.Marshal(input.Evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	scan := &types.Scan{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Domain:         domain,
		Status:         "completed",
		TotalScore:     input.TotalScore,
		CategoryScores: datatypes.JSON(scores),
		Evidence:       datatypes.JSON(evidence),
	}
	pageRows := make([]*types.SelectedPage, 0, len(input.Pages))
	for _, p := range input.Pages {
		pageRows = append(pageRows, &types.SelectedPage{
			ID:           uuid.New(),
			ScanID:       scan.ID,
			URL:          p.URL,
			PriorityRank: p.PriorityRank,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.scans.Create(dbc, []*types.Scan{scan}); err != nil {
			return fmt.Errorf("persist scan: %w", err)
		}
		if _, err := s.pages.Create(dbc, pageRows); err != nil {
			return fmt.Errorf("persist selected pages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Validation runs before classification so successors spawned from the
	// prior scan land in this scan's recommendation set and the classifier's
	// progress seeding counts them.
	validation, err := s.validation.ValidateScan(ctx, input.UserID, scan.ID)
	if err != nil {
		return nil, fmt.Errorf("validate against prior scan: %w", err)
	}

	classified, err := s.classifier.ClassifyAndSeed(ctx, scan, input.Plan, input.Recommendations, pageRows)
	if err != nil {
		return nil, fmt.Errorf("classify recommendations: %w", err)
	}

	mode, err := s.mode.EvaluateMode(ctx, input.UserID, input.TotalScore)
	if err != nil {
		return nil, fmt.Errorf("evaluate mode: %w", err)
	}

	s.log.Info("Scan intake complete",
		"scan_id", scan.ID,
		"domain", domain,
		"site_wide", len(classified.SiteWide),
		"page_specific", len(classified.PageSpecific),
		"mode", mode.Mode)

	return &IntakeResult{
		ScanID:     scan.ID,
		SiteWide:   len(classified.SiteWide),
		PageCount:  len(pageRows),
		Total:      len(classified.SiteWide) + len(classified.PageSpecific),
		Mode:       mode,
		Validation: validation,
	}, nil
}
