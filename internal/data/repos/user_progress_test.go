package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/data/repos/testutil"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
)

func newProgress(userID, scanID uuid.UUID, next *time.Time) *types.UserProgress {
	return &types.UserProgress{
		ID:                  uuid.New(),
		UserID:              userID,
		ScanID:              scanID,
		CurrentBatch:        1,
		TargetActiveCount:   5,
		NextReplacementDate: next,
	}
}

func TestUserProgressRepoGetAndLock(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserProgressRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 700)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}
	prog := newProgress(userID, scan.ID, nil)
	if _, err := repo.Create(dbc, []*types.UserProgress{prog}); err != nil {
		t.Fatalf("create progress: %v", err)
	}

	got, err := repo.GetByUserScan(dbc, userID, scan.ID)
	if err != nil {
		t.Fatalf("GetByUserScan: %v", err)
	}
	if got == nil || got.ID != prog.ID {
		t.Fatalf("got %v, want %s", got, prog.ID)
	}

	locked, err := repo.LockByUserScan(dbc, userID, scan.ID)
	if err != nil {
		t.Fatalf("LockByUserScan: %v", err)
	}
	if locked == nil || locked.ID != prog.ID {
		t.Fatalf("locked %v, want %s", locked, prog.ID)
	}

	missing, err := repo.LockByUserScan(dbc, userID, uuid.New())
	if err != nil {
		t.Fatalf("LockByUserScan missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown scan, got %+v", missing)
	}
}

func TestUserProgressRepoListDue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserProgressRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	now := time.Now().UTC()
	userID := uuid.New()

	mkScan := func() uuid.UUID {
		scan := testutil.NewScan(userID, "example.com", 700)
		if err := tx.Create(scan).Error; err != nil {
			t.Fatalf("create scan: %v", err)
		}
		return scan.ID
	}

	due := newProgress(userID, mkScan(), testutil.PtrTime(now.Add(-time.Hour)))
	future := newProgress(userID, mkScan(), testutil.PtrTime(now.Add(24*time.Hour)))
	allUnlocked := newProgress(userID, mkScan(), nil)
	for _, p := range []*types.UserProgress{due, future, allUnlocked} {
		if _, err := repo.Create(dbc, []*types.UserProgress{p}); err != nil {
			t.Fatalf("create progress: %v", err)
		}
	}

	got, err := repo.ListDue(dbc, now, 0)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("ListDue returned %d rows, want only the elapsed one", len(got))
	}
}

func TestUserProgressRepoUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserProgressRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 700)
	if err := tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}
	prog := newProgress(userID, scan.ID, testutil.PtrTime(time.Now().UTC()))
	if _, err := repo.Create(dbc, []*types.UserProgress{prog}); err != nil {
		t.Fatalf("create progress: %v", err)
	}

	err := repo.UpdateFields(dbc, prog.ID, map[string]interface{}{
		"current_batch":         2,
		"next_replacement_date": nil,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByUserScan(dbc, userID, scan.ID)
	if err != nil {
		t.Fatalf("GetByUserScan: %v", err)
	}
	if got.CurrentBatch != 2 {
		t.Fatalf("current_batch=%d, want 2", got.CurrentBatch)
	}
	if got.NextReplacementDate != nil {
		t.Fatalf("next_replacement_date should be cleared, got %v", got.NextReplacementDate)
	}
}
