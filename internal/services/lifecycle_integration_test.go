package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	"github.com/visiblelabs/aivis-backend/internal/data/repos/testutil"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/apperr"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
)

func newLifecycleFixture(t *testing.T) (LifecycleService, repos.RecommendationRepo, repos.UserProgressRepo, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	recRepo := repos.NewRecommendationRepo(db, log)
	progRepo := repos.NewUserProgressRepo(db, log)
	progSvc := NewProgressService(db, log, recRepo, progRepo)
	svc := NewLifecycleService(db, log, recRepo, progSvc)
	return svc, recRepo, progRepo, dbctx.Context{Ctx: context.Background(), Tx: db}
}

func seedActiveRec(t *testing.T, dbc dbctx.Context, recRepo repos.RecommendationRepo, progRepo repos.UserProgressRepo, skipEnabledAt *time.Time) *types.Recommendation {
	t.Helper()
	userID := uuid.New()
	scan := testutil.NewScan(userID, "example.com", 700)
	if err := dbc.Tx.Create(scan).Error; err != nil {
		t.Fatalf("create scan: %v", err)
	}
	rec := testutil.NewRecommendation(userID, scan.ID, "Add FAQs", 60)
	rec.UnlockState = types.RecStateActive
	rec.UnlockedAt = testutil.PtrTime(time.Now().UTC())
	rec.SkipEnabledAt = skipEnabledAt
	if _, err := recRepo.Create(dbc, []*types.Recommendation{rec}); err != nil {
		t.Fatalf("create recommendation: %v", err)
	}
	prog := &types.UserProgress{
		ID:                uuid.New(),
		UserID:            userID,
		ScanID:            scan.ID,
		CurrentBatch:      1,
		TargetActiveCount: 5,
	}
	applyRollup(prog, rollupFromRows([]*types.Recommendation{rec}))
	if _, err := progRepo.Create(dbc, []*types.UserProgress{prog}); err != nil {
		t.Fatalf("create progress: %v", err)
	}
	return rec
}

func TestLifecycleMarkImplemented(t *testing.T) {
	svc, recRepo, progRepo, dbc := newLifecycleFixture(t)
	rec := seedActiveRec(t, dbc, recRepo, progRepo, nil)

	got, err := svc.MarkImplemented(dbc.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("MarkImplemented: %v", err)
	}
	if got.UnlockState != types.RecStateCompleted || got.MarkedCompleteAt == nil {
		t.Fatalf("got state=%s marked_complete_at=%v", got.UnlockState, got.MarkedCompleteAt)
	}

	prog, err := progRepo.GetByUserScan(dbc, rec.UserID, rec.ScanID)
	if err != nil || prog == nil {
		t.Fatalf("reload progress: %v", err)
	}
	if prog.CompletedRecommendations != 1 || prog.ActiveRecommendations != 0 {
		t.Fatalf("counters not synced: completed=%d active=%d", prog.CompletedRecommendations, prog.ActiveRecommendations)
	}

	// A second completion of the same row is an invalid transition.
	if _, err := svc.MarkImplemented(dbc.Ctx, rec.ID); err == nil {
		t.Fatal("expected invalid transition for completed row")
	}
}

func TestLifecycleSkipGate(t *testing.T) {
	svc, recRepo, progRepo, dbc := newLifecycleFixture(t)

	opensIn3d := time.Now().UTC().Add(3 * 24 * time.Hour)
	rec := seedActiveRec(t, dbc, recRepo, progRepo, &opensIn3d)

	_, err := svc.Skip(dbc.Ctx, rec.ID, time.Now().UTC())
	if err == nil {
		t.Fatal("expected skip gate to reject early skip")
	}
	ite, ok := apperr.AsInvalidTransition(err)
	if !ok {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.DaysRemaining != 3 {
		t.Fatalf("days remaining=%d, want 3", ite.DaysRemaining)
	}

	// Past the window the same skip goes through.
	got, err := svc.Skip(dbc.Ctx, rec.ID, opensIn3d.Add(time.Minute))
	if err != nil {
		t.Fatalf("Skip after window: %v", err)
	}
	if got.UnlockState != types.RecStateSkipped || got.SkippedAt == nil {
		t.Fatalf("got state=%s skipped_at=%v", got.UnlockState, got.SkippedAt)
	}
}

func TestLifecycleSkipUnknownRecommendation(t *testing.T) {
	svc, _, _, dbc := newLifecycleFixture(t)
	if _, err := svc.Skip(dbc.Ctx, uuid.New(), time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestLifecycleConfirmAutoDetection(t *testing.T) {
	svc, recRepo, progRepo, dbc := newLifecycleFixture(t)

	seed := func() *types.Recommendation {
		rec := seedActiveRec(t, dbc, recRepo, progRepo, nil)
		err := recRepo.UpdateFields(dbc, rec.ID, map[string]interface{}{
			"unlock_state":       types.RecStateCompleted,
			"marked_complete_at": time.Now().UTC(),
			"validation_status":  types.ValidationStatusAutoDetected,
		})
		if err != nil {
			t.Fatalf("prime auto-detection: %v", err)
		}
		return rec
	}

	t.Run("confirm_promotes_to_verified", func(t *testing.T) {
		rec := seed()
		got, err := svc.ConfirmAutoDetection(dbc.Ctx, rec.ID, true)
		if err != nil {
			t.Fatalf("ConfirmAutoDetection: %v", err)
		}
		if got.UnlockState != types.RecStateVerified || got.VerifiedAt == nil {
			t.Fatalf("got state=%s verified_at=%v", got.UnlockState, got.VerifiedAt)
		}
		prog, err := progRepo.GetByUserScan(dbc, rec.UserID, rec.ScanID)
		if err != nil || prog == nil {
			t.Fatalf("reload progress: %v", err)
		}
		// Verified still counts as completed so the count identity holds.
		if prog.VerifiedRecommendations != 1 || prog.CompletedRecommendations != 1 {
			t.Fatalf("verified=%d completed=%d", prog.VerifiedRecommendations, prog.CompletedRecommendations)
		}
	})

	t.Run("reject_reopens_to_active", func(t *testing.T) {
		rec := seed()
		got, err := svc.ConfirmAutoDetection(dbc.Ctx, rec.ID, false)
		if err != nil {
			t.Fatalf("ConfirmAutoDetection: %v", err)
		}
		if got.UnlockState != types.RecStateActive {
			t.Fatalf("state=%s, want active", got.UnlockState)
		}
		reloaded, err := recRepo.GetByID(dbc, rec.ID)
		if err != nil || reloaded == nil {
			t.Fatalf("reload recommendation: %v", err)
		}
		if reloaded.MarkedCompleteAt != nil || reloaded.ValidationStatus != nil {
			t.Fatalf("rejection should clear completion marks: %+v", reloaded)
		}
	})

	t.Run("no_pending_detection", func(t *testing.T) {
		rec := seedActiveRec(t, dbc, recRepo, progRepo, nil)
		if _, err := svc.ConfirmAutoDetection(dbc.Ctx, rec.ID, true); err == nil {
			t.Fatal("expected error without pending auto-detection")
		}
	})
}
