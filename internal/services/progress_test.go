package services

import (
	"testing"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
)

func TestRollupFromCounts(t *testing.T) {
	counts := []repos.StateCount{
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateActive, Count: 3},
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateLocked, Count: 4},
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateVerified, Count: 1},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateActive, Count: 2},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateCompleted, Count: 5},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateSkipped, Count: 1},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateInProgress, Count: 2},
	}

	r := rollupFromCounts(counts)

	if r.Total != 18 {
		t.Fatalf("total=%d, want 18", r.Total)
	}
	if r.Active != 5 || r.Locked != 4 || r.Completed != 5 || r.Verified != 1 || r.Skipped != 1 || r.InProgress != 2 {
		t.Fatalf("unexpected state counts: %+v", r)
	}
	if r.SiteWideTotal != 8 || r.SiteWideActive != 3 || r.SiteWideCompleted != 1 {
		t.Fatalf("unexpected site-wide counts: %+v", r)
	}
	if r.PageSpecificTotal != 10 || r.PageSpecificCompleted != 5 {
		t.Fatalf("unexpected page-specific counts: %+v", r)
	}
}

// The persisted completed counter folds verified rows in, so the identity
// active + locked + completed + skipped + in_progress == total holds even
// after confirmations promote completed rows to verified.
func TestApplyRollupCountIdentity(t *testing.T) {
	counts := []repos.StateCount{
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateActive, Count: 5},
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateLocked, Count: 7},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateCompleted, Count: 3},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateVerified, Count: 2},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateSkipped, Count: 1},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateInProgress, Count: 1},
	}
	r := rollupFromCounts(counts)

	var p types.UserProgress
	applyRollup(&p, r)

	sum := p.ActiveRecommendations + r.Locked + p.CompletedRecommendations + r.Skipped + r.InProgress
	if sum != p.TotalRecommendations {
		t.Fatalf("count identity broken: %d != total %d", sum, p.TotalRecommendations)
	}
	if p.CompletedRecommendations != 5 {
		t.Fatalf("completed=%d, want 5 (3 completed + 2 verified)", p.CompletedRecommendations)
	}
	if p.VerifiedRecommendations != 2 {
		t.Fatalf("verified=%d, want 2", p.VerifiedRecommendations)
	}
}

func TestRollupFromRows(t *testing.T) {
	rows := []*types.Recommendation{
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateActive},
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateActive},
		{RecType: types.RecTypePageSpecific, UnlockState: types.RecStateLocked},
	}
	r := rollupFromRows(rows)
	if r.Total != 3 || r.Active != 2 || r.Locked != 1 || r.SiteWideActive != 2 {
		t.Fatalf("unexpected rollup: %+v", r)
	}
}

func TestRollupUpdatesMatchesApplyRollup(t *testing.T) {
	counts := []repos.StateCount{
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateCompleted, Count: 2},
		{RecType: types.RecTypeSiteWide, UnlockState: types.RecStateVerified, Count: 3},
	}
	r := rollupFromCounts(counts)

	updates := rollupUpdates(r)
	var p types.UserProgress
	applyRollup(&p, r)

	if updates["completed_recommendations"] != p.CompletedRecommendations {
		t.Fatalf("completed mismatch: map=%v struct=%d", updates["completed_recommendations"], p.CompletedRecommendations)
	}
	if updates["verified_recommendations"] != p.VerifiedRecommendations {
		t.Fatalf("verified mismatch: map=%v struct=%d", updates["verified_recommendations"], p.VerifiedRecommendations)
	}
	if updates["total_recommendations"] != p.TotalRecommendations {
		t.Fatalf("total mismatch: map=%v struct=%d", updates["total_recommendations"], p.TotalRecommendations)
	}
}
