package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/cache"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	admin   = models.Principal{UserID: bson.NewObjectID(), Role: models.RoleAdmin}
	checker = models.Principal{UserID: bson.NewObjectID(), Role: models.RoleFactChecker}
	alice   = models.Principal{UserID: bson.NewObjectID(), Role: models.RoleUser}
	bob     = models.Principal{UserID: bson.NewObjectID(), Role: models.RoleUser}
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	return newServiceWith(store), store
}

func newServiceWith(store storage.Store) *Service {
	var mu sync.Mutex
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewService(store, cache.NewMockRedisClient("test:"), Options{
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
}

func seedNews(t *testing.T, svc *Service, source string) *models.News {
	t.Helper()
	n, err := svc.CreateNews(context.Background(), checker, NewsInput{
		Title:    "Budget passes",
		Summary:  "Parliament approved the budget",
		Content:  "Full story",
		Source:   source,
		Category: "politics",
	})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	return n
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("err = %v (kind %s), want kind %s", err, apperr.KindOf(err), kind)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	if err := requireRole(models.Principal{}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("anonymous: %v", err)
	}
	if err := requireRole(alice, models.RoleAdmin, models.RoleFactChecker); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("user on admin gate: %v", err)
	}
	if err := requireRole(checker, models.RoleAdmin, models.RoleFactChecker); err != nil {
		t.Errorf("fact checker rejected: %v", err)
	}
	if err := requireAuthorOrAdmin(bob, alice.UserID, "no"); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("stranger allowed: %v", err)
	}
	if err := requireAuthorOrAdmin(admin, alice.UserID, "no"); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
}

func TestPaging(t *testing.T) {
	t.Parallel()

	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{3, 500, 3, 100},
		{-2, 7, 1, 7},
	}
	for _, tc := range cases {
		p, l := paging(tc.page, tc.limit, 10, 100)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("paging(%d, %d) = %d, %d", tc.page, tc.limit, p, l)
		}
	}

	if pg := newPage([]int{1}, 1, 10, 21); pg.Pages != 3 {
		t.Errorf("pages = %d, want 3", pg.Pages)
	}
}

func TestCleanStripsMarkup(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	got := svc.clean("  <script>alert(1)</script><b>Tom & Jerry</b> ")
	if got != "Tom & Jerry" {
		t.Errorf("clean = %q", got)
	}
}

func TestDailyXScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	n := seedNews(t, svc, "Daily X")
	src, err := store.FindSourceByName(ctx, "Daily X")
	if err != nil {
		t.Fatalf("source not created: %v", err)
	}
	if src.NewsCount != 1 || src.Verified || src.CredibilityScore != models.DefaultSourceScore {
		t.Fatalf("new source = %+v", src)
	}

	steps := []struct {
		vote     models.VoteType
		up, down int
	}{
		{models.Upvote, 1, 0},
		{models.Upvote, 0, 0},
		{models.Downvote, 0, 1},
	}
	for i, st := range steps {
		tally, err := svc.CastVote(ctx, alice, n.ID, st.vote)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		if tally.Upvotes != st.up || tally.Downvotes != st.down {
			t.Fatalf("vote %d: got %d/%d, want %d/%d", i, tally.Upvotes, tally.Downvotes, st.up, st.down)
		}
	}

	c, err := svc.CreateComment(ctx, alice, n.ID, "Looks legit", nil)
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if got, _ := store.FindNews(ctx, n.ID); got.CommentsCount != 1 {
		t.Fatalf("commentsCount = %d, want 1", got.CommentsCount)
	}

	if err := svc.DeleteComment(ctx, alice, c.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if got, _ := store.FindNews(ctx, n.ID); got.CommentsCount != 0 {
		t.Fatalf("commentsCount = %d, want 0", got.CommentsCount)
	}

	if err := svc.DeleteNews(ctx, admin, n.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	src, _ = store.FindSourceByName(ctx, "Daily X")
	if src.NewsCount != 0 {
		t.Fatalf("newsCount = %d, want 0", src.NewsCount)
	}
}

// failingStore fails the source cascade so compensation can be observed.
type failingStore struct {
	*storage.Memory
}

func (f failingStore) IncSourceNewsCount(ctx context.Context, name string, seed *models.Source) error {
	return context.DeadlineExceeded
}

func TestCreateNewsCompensatesFailedCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemory()
	svc := newServiceWith(failingStore{mem})

	_, err := svc.CreateNews(ctx, admin, NewsInput{
		Title: "t", Summary: "s", Content: "c", Source: "Daily X", Category: "x",
	})
	wantKind(t, err, apperr.KindTransient)

	_, total, _ := mem.ListNews(ctx, storage.NewsFilter{Limit: 10})
	if total != 0 {
		t.Errorf("news left behind after failed create: %d", total)
	}
}
