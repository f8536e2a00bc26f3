package testutil

import (
	"time"

	"github.com/google/uuid"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
)

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func PtrTime(t time.Time) *time.Time { return &t }

func PtrString(s string) *string { return &s }

// NewScan builds a minimal completed scan row for repo tests.
func NewScan(userID uuid.UUID, domain string, score int) *types.Scan {
	return &types.Scan{
		ID:         uuid.New(),
		UserID:     userID,
		Domain:     domain,
		Status:     "completed",
		TotalScore: score,
	}
}

// NewRecommendation builds a locked site-wide recommendation row.
func NewRecommendation(userID, scanID uuid.UUID, title string, priority int) *types.Recommendation {
	return &types.Recommendation{
		ID:          uuid.New(),
		ScanID:      scanID,
		UserID:      userID,
		Category:    "technical_seo",
		Title:       title,
		Priority:    priority,
		RecType:     types.RecTypeSiteWide,
		UnlockState: types.RecStateLocked,
		BatchNumber: 1,
	}
}
