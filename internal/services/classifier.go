package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/config"
	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// RawRecommendation is the shape the external recommendation generator
// hands over, before classification and persistence.
type RawRecommendation struct {
	Category        string                 `json:"category"`
	Title           string                 `json:"title"`
	Text            string                 `json:"text"`
	Priority        int                    `json:"priority"`
	EstimatedImpact string                 `json:"estimated_impact"`
	Effort          string                 `json:"effort"`
	ActionSteps     []string               `json:"action_steps,omitempty"`
	Findings        map[string]interface{} `json:"findings,omitempty"`
	CodeSnippet     string                 `json:"code_snippet,omitempty"`
}

type ClassifyResult struct {
	SiteWide     []*types.Recommendation
	PageSpecific []*types.Recommendation
	Progress     *types.UserProgress
}

type ClassifierService interface {
	// ClassifyAndSeed splits raw recommendations into site-wide and
	// page-specific sets, distributes page-specific ones across the selected
	// pages, seeds initial unlock states by plan tier, and persists the rows
	// together with the scan's UserProgress aggregate in one transaction.
	ClassifyAndSeed(ctx context.Context, scan *types.Scan, plan string, raw []RawRecommendation, pages []*types.SelectedPage) (*ClassifyResult, error)
}

type classifierService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      config.Config
	recs     repos.RecommendationRepo
	progress repos.UserProgressRepo
}

func NewClassifierService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.Config,
	recs repos.RecommendationRepo,
	progress repos.UserProgressRepo,
) ClassifierService {
	return &classifierService{
		db:       db,
		log:      baseLog.With("service", "ClassifierService"),
		cfg:      cfg,
		recs:     recs,
		progress: progress,
	}
}

func (s *classifierService) ClassifyAndSeed(ctx context.Context, scan *types.Scan, plan string, raw []RawRecommendation, pages []*types.SelectedPage) (*ClassifyResult, error) {
	if scan == nil || scan.ID == uuid.Nil {
		return nil, fmt.Errorf("missing scan")
	}

	var siteWideRaw, pageSpecificRaw []RawRecommendation
	for _, rr := range raw {
		if isSiteWide(s.cfg.Rules, rr) {
			siteWideRaw = append(siteWideRaw, rr)
		} else {
			pageSpecificRaw = append(pageSpecificRaw, rr)
		}
	}

	// The raw list arrives priority-sorted from the generator, so an
	// order-preserving slice drops the lowest-priority overflow.
	if s.cfg.SiteWideCap > 0 && len(siteWideRaw) > s.cfg.SiteWideCap {
		s.log.Info("Truncating site-wide recommendations to cap",
			"scan_id", scan.ID, "count", len(siteWideRaw), "cap", s.cfg.SiteWideCap)
		siteWideRaw = siteWideRaw[:s.cfg.SiteWideCap]
	}

	pageURLs := distributeAcrossPages(len(pageSpecificRaw), pages)

	now := time.Now().UTC()
	siteWide := make([]*types.Recommendation, 0, len(siteWideRaw))
	for _, rr := range siteWideRaw {
		siteWide = append(siteWide, buildRecommendation(scan, rr, types.RecTypeSiteWide, nil))
	}
	pageSpecific := make([]*types.Recommendation, 0, len(pageSpecificRaw))
	for i, rr := range pageSpecificRaw {
		pageSpecific = append(pageSpecific, buildRecommendation(scan, rr, types.RecTypePageSpecific, pageURLs[i]))
	}

	initialActive := s.cfg.PlanInitialActive[strings.ToLower(strings.TrimSpace(plan))]
	all := append(append([]*types.Recommendation{}, siteWide...), pageSpecific...)
	seedInitialStates(all, initialActive, now, s.cfg.SkipDelay)

	next := now.Add(s.cfg.ReplacementInterval)
	prog := &types.UserProgress{
		ID:                  uuid.New(),
		UserID:              scan.UserID,
		ScanID:              scan.ID,
		CurrentBatch:        1,
		TargetActiveCount:   s.cfg.TargetActiveCount,
		NextReplacementDate: &next,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.recs.Create(dbc, all); err != nil {
			return fmt.Errorf("persist recommendations: %w", err)
		}
		// Counters come from the persisted state set, not the slice just
		// built: validation may already have written successor rows under
		// this scan, and those belong in the totals too.
		counts, err := s.recs.CountStates(dbc, scan.ID)
		if err != nil {
			return fmt.Errorf("count recommendation states: %w", err)
		}
		applyRollup(prog, rollupFromCounts(counts))
		if _, err := s.progress.Create(dbc, []*types.UserProgress{prog}); err != nil {
			return fmt.Errorf("persist user progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Classified and seeded recommendations",
		"scan_id", scan.ID,
		"site_wide", len(siteWide),
		"page_specific", len(pageSpecific),
		"initial_active", minInt(initialActive, len(all)))

	return &ClassifyResult{SiteWide: siteWide, PageSpecific: pageSpecific, Progress: prog}, nil
}

// isSiteWide applies the declarative rule table: a category match or a
// keyword hit anywhere in title/text classifies the fix as site-wide.
func isSiteWide(rules config.RuleTable, rr RawRecommendation) bool {
	category := strings.ToLower(strings.TrimSpace(rr.Category))
	for _, c := range rules.SiteWideCategories {
		if category == strings.ToLower(c) {
			return true
		}
	}
	haystack := strings.ToLower(rr.Title + " " + rr.Text)
	for _, kw := range rules.SiteWideKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// distributeAcrossPages assigns page URLs to page-specific recommendations
// in generation order: a single page receives all of them, multiple pages
// receive ceil(count/pageCount) each.
func distributeAcrossPages(count int, pages []*types.SelectedPage) []*string {
	out := make([]*string, count)
	if count == 0 || len(pages) == 0 {
		return out
	}
	if len(pages) == 1 {
		for i := range out {
			out[i] = &pages[0].URL
		}
		return out
	}
	perPage := (count + len(pages) - 1) / len(pages)
	for i := 0; i < count; i++ {
		page := pages[i/perPage]
		out[i] = &page.URL
	}
	return out
}

// seedInitialStates marks the first n rows active (batch 1, unlocked now)
// and the remainder locked.
func seedInitialStates(rows []*types.Recommendation, n int, now time.Time, skipDelay time.Duration) {
	skipAt := now.Add(skipDelay)
	for i, row := range rows {
		row.BatchNumber = 1
		if i < n {
			row.UnlockState = types.RecStateActive
			row.UnlockedAt = &now
			row.SkipEnabledAt = &skipAt
		} else {
			row.UnlockState = types.RecStateLocked
		}
	}
}

func buildRecommendation(scan *types.Scan, rr RawRecommendation, recType string, pageURL *string) *types.Recommendation {
	row := &types.Recommendation{
		ID:              uuid.New(),
		ScanID:          scan.ID,
		UserID:          scan.UserID,
		Category:        rr.Category,
		Title:           rr.Title,
		Text:            rr.Text,
		Priority:        rr.Priority,
		EstimatedImpact: rr.EstimatedImpact,
		Effort:          rr.Effort,
		RecType:         recType,
		PageURL:         pageURL,
		CodeSnippet:     rr.CodeSnippet,
	}
	if len(rr.ActionSteps) > 0 {
		if raw, err := json.Marshal(rr.ActionSteps); err == nil {
			row.ActionSteps = datatypes.JSON(raw)
		}
	}
	if len(rr.Findings) > 0 {
		if raw, err := json.Marshal(rr.Findings); err == nil {
			row.Findings = datatypes.JSON(raw)
		}
	}
	return row
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
