package moderation

import (
	"context"
	"testing"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/credibility"
	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCreateSourceRoles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateSource(ctx, alice, SourceInput{Name: "Blog Y"})
	wantKind(t, err, apperr.KindForbidden)

	byChecker, err := svc.CreateSource(ctx, checker, SourceInput{Name: "Blog Y", Type: models.Blog})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	if byChecker.Verified || byChecker.Type != models.Blog || byChecker.Bias != models.BiasUnknown {
		t.Errorf("checker-created source = %+v", byChecker)
	}

	byAdmin, err := svc.CreateSource(ctx, admin, SourceInput{Name: "Wire Z"})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	if !byAdmin.Verified || byAdmin.VerifiedBy == nil || *byAdmin.VerifiedBy != admin.UserID {
		t.Errorf("admin-created source not verified: %+v", byAdmin)
	}

	_, err = svc.CreateSource(ctx, admin, SourceInput{Name: "Blog Y"})
	wantKind(t, err, apperr.KindConflict)

	_, err = svc.CreateSource(ctx, admin, SourceInput{Name: "Odd", Bias: "Sideways"})
	wantKind(t, err, apperr.KindInvalidArgument)
}

func TestUpdateSourceCredibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	src, _ := svc.CreateSource(ctx, checker, SourceInput{Name: "Daily X"})

	_, err := svc.UpdateSourceCredibility(ctx, checker, src.ID, 101)
	wantKind(t, err, apperr.KindInvalidArgument)

	got, err := svc.UpdateSourceCredibility(ctx, checker, src.ID, 85)
	if err != nil {
		t.Fatalf("UpdateSourceCredibility: %v", err)
	}
	if got.CredibilityLevel != credibility.VeryHigh || got.Verified {
		t.Errorf("checker update = %+v", got)
	}

	got, _ = svc.UpdateSourceCredibility(ctx, admin, src.ID, 30)
	if got.CredibilityLevel != credibility.Low || !got.Verified {
		t.Errorf("admin update = %+v", got)
	}
}

func TestUpdateSourceRenameConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	a, _ := svc.CreateSource(ctx, admin, SourceInput{Name: "A"})
	_, _ = svc.CreateSource(ctx, admin, SourceInput{Name: "B"})

	taken := "B"
	_, err := svc.UpdateSource(ctx, checker, a.ID, SourcePatch{Name: &taken})
	wantKind(t, err, apperr.KindConflict)

	_, err = svc.UpdateSource(ctx, checker, bson.NewObjectID(), SourcePatch{})
	wantKind(t, err, apperr.KindNotFound)
}

func TestVerifyAndTopSources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	low, _ := svc.CreateSource(ctx, checker, SourceInput{Name: "Low"})
	high, _ := svc.CreateSource(ctx, checker, SourceInput{Name: "High"})
	_, _ = svc.UpdateSourceCredibility(ctx, checker, high.ID, 90)

	top, err := svc.TopSources(ctx, 10)
	if err != nil {
		t.Fatalf("TopSources: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("unverified sources listed: %+v", top)
	}

	_, err = svc.VerifySource(ctx, checker, high.ID)
	wantKind(t, err, apperr.KindForbidden)

	for _, id := range []bson.ObjectID{low.ID, high.ID} {
		if _, err := svc.VerifySource(ctx, admin, id); err != nil {
			t.Fatalf("VerifySource: %v", err)
		}
	}
	// Verifying again is allowed.
	if _, err := svc.VerifySource(ctx, admin, low.ID); err != nil {
		t.Fatalf("re-verify: %v", err)
	}

	top, _ = svc.TopSources(ctx, 1)
	if len(top) != 1 || top[0].Name != "High" {
		t.Fatalf("top = %+v", top)
	}
	top, _ = svc.TopSources(ctx, 0)
	if len(top) != 2 {
		t.Fatalf("default limit returned %d sources", len(top))
	}
}

func TestDeleteSourceAdminOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	src, _ := svc.CreateSource(ctx, admin, SourceInput{Name: "Gone"})

	wantKind(t, svc.DeleteSource(ctx, checker, src.ID), apperr.KindForbidden)
	if err := svc.DeleteSource(ctx, admin, src.ID); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	_, err := svc.GetSource(ctx, src.ID)
	wantKind(t, err, apperr.KindNotFound)
}

func TestSourceCountNeverNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")

	// Drift the counter to zero behind the engine's back.
	_ = store.DecSourceNewsCount(ctx, "Daily X")

	if err := svc.DeleteNews(ctx, admin, n.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	src, _ := store.FindSourceByName(ctx, "Daily X")
	if src.NewsCount != 0 {
		t.Errorf("newsCount = %d, want 0", src.NewsCount)
	}
}

func TestRenameSourceMovesNews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")
	src, _ := store.FindSourceByName(ctx, "Daily X")

	renamed := "Daily Y"
	got, err := svc.UpdateSource(ctx, admin, src.ID, SourcePatch{Name: &renamed})
	if err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}
	if got.Name != "Daily Y" || got.NewsCount != 1 {
		t.Fatalf("renamed source = %+v", got)
	}
	stored, _ := store.FindNews(ctx, n.ID)
	if stored.Source != "Daily Y" {
		t.Fatalf("news source = %q, want Daily Y", stored.Source)
	}

	if err := svc.DeleteNews(ctx, admin, n.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	y, _ := svc.GetSource(ctx, src.ID)
	if y.NewsCount != 0 {
		t.Errorf("newsCount after delete = %d, want 0", y.NewsCount)
	}
	if x, _ := store.FindSourceByName(ctx, "Daily X"); x != nil {
		t.Errorf("old name recreated: %+v", x)
	}
}

func TestDeleteSourceRefusedWhileReferenced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	first := seedNews(t, svc, "Daily X")
	seedNews(t, svc, "Daily X")
	src, _ := store.FindSourceByName(ctx, "Daily X")

	wantKind(t, svc.DeleteSource(ctx, admin, src.ID), apperr.KindConflict)
	kept, err := svc.GetSource(ctx, src.ID)
	if err != nil || kept.NewsCount != 2 {
		t.Fatalf("source after refused delete = %+v, %v", kept, err)
	}

	// Recreating through the cascade would otherwise restart the count.
	if err := svc.DeleteNews(ctx, admin, first.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	seedNews(t, svc, "Daily X")
	kept, _ = svc.GetSource(ctx, src.ID)
	if kept.NewsCount != 2 {
		t.Errorf("newsCount = %d, want 2", kept.NewsCount)
	}
}
