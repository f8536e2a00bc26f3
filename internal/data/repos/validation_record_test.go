package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/data/repos/testutil"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
)

func TestValidationRecordRepoDedupe(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewValidationRecordRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 600)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}
	rec := testutil.NewRecommendation(userID, scan.ID, "Add FAQs", 50)
	if err := tx.Create(rec).Error; err != nil {
		t.Fatalf("create recommendation: %v", err)
	}

	first := &types.ValidationRecord{
		ID:                   uuid.New(),
		RecommendationID:     rec.ID,
		ScanID:               scan.ID,
		UserID:               userID,
		Subfactor:            "faq",
		Outcome:              types.OutcomePartialProgress,
		WasImplemented:       false,
		CompletionPercentage: 60,
	}
	if _, err := repo.Create(dbc, []*types.ValidationRecord{first}); err != nil {
		t.Fatalf("create first: %v", err)
	}

	// A retried handler writes the same (recommendation, scan) pair again;
	// the conflict clause must keep the original row.
	dup := &types.ValidationRecord{
		ID:                   uuid.New(),
		RecommendationID:     rec.ID,
		ScanID:               scan.ID,
		UserID:               userID,
		Subfactor:            "faq",
		Outcome:              types.OutcomeVerifiedComplete,
		WasImplemented:       true,
		CompletionPercentage: 100,
	}
	if _, err := repo.Create(dbc, []*types.ValidationRecord{dup}); err != nil {
		t.Fatalf("create duplicate: %v", err)
	}

	rows, err := repo.ListByRecommendation(dbc, rec.ID)
	if err != nil {
		t.Fatalf("ListByRecommendation: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].ID != first.ID || rows[0].Outcome != types.OutcomePartialProgress {
		t.Fatalf("original row was replaced: %+v", rows[0])
	}

	got, err := repo.GetByRecommendationAndScan(dbc, rec.ID, scan.ID)
	if err != nil {
		t.Fatalf("GetByRecommendationAndScan: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("lookup returned %v, want %s", got, first.ID)
	}
}
