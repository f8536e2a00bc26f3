package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/data/repos/testutil"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
)

func TestRecommendationRepoListLockedOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRecommendationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 640)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}

	low := testutil.NewRecommendation(userID, scan.ID, "low priority", 10)
	high := testutil.NewRecommendation(userID, scan.ID, "high priority", 90)
	midFirst := testutil.NewRecommendation(userID, scan.ID, "mid first", 50)
	midSecond := testutil.NewRecommendation(userID, scan.ID, "mid second", 50)
	active := testutil.NewRecommendation(userID, scan.ID, "already active", 99)
	active.UnlockState = types.RecStateActive

	for _, row := range []*types.Recommendation{low, high, midFirst, midSecond, active} {
		if _, err := repo.Create(dbc, []*types.Recommendation{row}); err != nil {
			t.Fatalf("create recommendation: %v", err)
		}
	}

	got, err := repo.ListLockedByScan(dbc, scan.ID, 0)
	if err != nil {
		t.Fatalf("ListLockedByScan: %v", err)
	}
	want := []uuid.UUID{high.ID, midFirst.ID, midSecond.ID, low.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s (%s), want %s", i, got[i].ID, got[i].Title, id)
		}
	}

	limited, err := repo.ListLockedByScan(dbc, scan.ID, 2)
	if err != nil {
		t.Fatalf("ListLockedByScan limit: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != high.ID {
		t.Fatalf("limited list wrong: %d rows", len(limited))
	}
}

func TestRecommendationRepoCountStates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRecommendationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 700)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}

	states := []string{
		types.RecStateActive, types.RecStateActive,
		types.RecStateLocked,
		types.RecStateCompleted,
	}
	for i, st := range states {
		row := testutil.NewRecommendation(userID, scan.ID, "rec", 10+i)
		row.UnlockState = st
		if _, err := repo.Create(dbc, []*types.Recommendation{row}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	pageRow := testutil.NewRecommendation(userID, scan.ID, "page rec", 5)
	pageRow.RecType = types.RecTypePageSpecific
	pageRow.UnlockState = types.RecStateActive
	if _, err := repo.Create(dbc, []*types.Recommendation{pageRow}); err != nil {
		t.Fatalf("create: %v", err)
	}

	counts, err := repo.CountStates(dbc, scan.ID)
	if err != nil {
		t.Fatalf("CountStates: %v", err)
	}
	byKey := map[string]int{}
	total := 0
	for _, c := range counts {
		byKey[c.RecType+"/"+c.UnlockState] = c.Count
		total += c.Count
	}
	if total != 5 {
		t.Fatalf("total=%d, want 5", total)
	}
	if byKey["site_wide/active"] != 2 || byKey["site_wide/locked"] != 1 ||
		byKey["site_wide/completed"] != 1 || byKey["page_specific/active"] != 1 {
		t.Fatalf("unexpected buckets: %v", byKey)
	}
}

func TestRecommendationRepoGetSuccessor(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRecommendationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	oldScan := testutil.NewScan(userID, "example.com", 500)
	newScan := testutil.NewScan(userID, "example.com", 600)
	for _, s := range []*types.Scan{oldScan, newScan} {
		if err := tx.Create(s).Error; err != nil {
			t.Fatalf("create scan: %v", err)
		}
	}

	prev := testutil.NewRecommendation(userID, oldScan.ID, "Add FAQs", 50)
	prev.UnlockState = types.RecStateCompleted
	if _, err := repo.Create(dbc, []*types.Recommendation{prev}); err != nil {
		t.Fatalf("create previous: %v", err)
	}

	if got, err := repo.GetSuccessor(dbc, prev.ID, newScan.ID); err != nil || got != nil {
		t.Fatalf("expected no successor yet, got %v err %v", got, err)
	}

	successor := testutil.NewRecommendation(userID, newScan.ID, "Add 2 more FAQs", 50)
	successor.UnlockState = types.RecStateInProgress
	successor.PreviousRecommendationID = testutil.PtrUUID(prev.ID)
	successor.SourceScanID = testutil.PtrUUID(newScan.ID)
	if _, err := repo.Create(dbc, []*types.Recommendation{successor}); err != nil {
		t.Fatalf("create successor: %v", err)
	}

	got, err := repo.GetSuccessor(dbc, prev.ID, newScan.ID)
	if err != nil {
		t.Fatalf("GetSuccessor: %v", err)
	}
	if got == nil || got.ID != successor.ID {
		t.Fatalf("got %v, want %s", got, successor.ID)
	}
}

func TestRecommendationRepoUpdateFieldsByIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewRecommendationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 700)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}
	a := testutil.NewRecommendation(userID, scan.ID, "a", 10)
	b := testutil.NewRecommendation(userID, scan.ID, "b", 20)
	c := testutil.NewRecommendation(userID, scan.ID, "c", 30)
	if _, err := repo.Create(dbc, []*types.Recommendation{a, b, c}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.UpdateFieldsByIDs(dbc, []uuid.UUID{a.ID, b.ID}, map[string]interface{}{
		"unlock_state": types.RecStateActive,
		"batch_number": 2,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsByIDs: %v", err)
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{a.ID, b.ID, c.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	for _, row := range rows {
		switch row.ID {
		case c.ID:
			if row.UnlockState != types.RecStateLocked || row.BatchNumber != 1 {
				t.Fatalf("untouched row changed: %+v", row)
			}
		default:
			if row.UnlockState != types.RecStateActive || row.BatchNumber != 2 {
				t.Fatalf("row %s not updated: state=%s batch=%d", row.Title, row.UnlockState, row.BatchNumber)
			}
		}
	}
}
