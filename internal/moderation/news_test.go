package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/credibility"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCreateNewsCertifiesAndValidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateNews(ctx, alice, NewsInput{Title: "t"})
	wantKind(t, err, apperr.KindForbidden)

	_, err = svc.CreateNews(ctx, checker, NewsInput{Title: "only a title"})
	wantKind(t, err, apperr.KindInvalidArgument)

	n := seedNews(t, svc, "Daily X")
	if !n.FactChecked || n.FactCheckerID == nil || *n.FactCheckerID != checker.UserID {
		t.Errorf("new item not certified: %+v", n)
	}
	if n.CredibilityScore != 0 || n.CredibilityLevel != credibility.VeryLow {
		t.Errorf("default credibility = %d/%s", n.CredibilityScore, n.CredibilityLevel)
	}
}

func TestUpdateNewsMovesSourceCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")

	renamed := "Daily Y"
	score := 65
	got, err := svc.UpdateNews(ctx, admin, n.ID, NewsPatch{Source: &renamed, CredibilityScore: &score})
	if err != nil {
		t.Fatalf("UpdateNews: %v", err)
	}
	if got.CredibilityLevel != credibility.High || *got.FactCheckerID != admin.UserID {
		t.Errorf("updated item = %+v", got)
	}

	x, _ := store.FindSourceByName(ctx, "Daily X")
	y, _ := store.FindSourceByName(ctx, "Daily Y")
	if x.NewsCount != 0 || y == nil || y.NewsCount != 1 {
		t.Fatalf("counts after rename: X=%d Y=%+v", x.NewsCount, y)
	}

	empty := ""
	_, err = svc.UpdateNews(ctx, admin, n.ID, NewsPatch{Title: &empty})
	wantKind(t, err, apperr.KindInvalidArgument)
}

// lockstepStore holds the first two FindNews calls until both have read,
// so two updates plan from the same snapshot.
type lockstepStore struct {
	*storage.Memory
	mu      sync.Mutex
	reads   int
	release chan struct{}
}

func (l *lockstepStore) FindNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	n, err := l.Memory.FindNews(ctx, id)

	l.mu.Lock()
	if l.release == nil || l.reads >= 2 {
		l.mu.Unlock()
		return n, err
	}
	l.reads++
	if l.reads == 2 {
		close(l.release)
	}
	release := l.release
	l.mu.Unlock()

	<-release
	return n, err
}

func TestConcurrentSourceMoveCountsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &lockstepStore{Memory: storage.NewMemory()}
	svc := newServiceWith(store)
	n := seedNews(t, svc, "Daily X")

	store.mu.Lock()
	store.release = make(chan struct{})
	store.mu.Unlock()

	target := "Daily Y"
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []models.Principal{admin, checker} {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.UpdateNews(ctx, p, n.ID, NewsPatch{Source: &target})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	x, _ := store.FindSourceByName(ctx, "Daily X")
	y, _ := store.FindSourceByName(ctx, "Daily Y")
	if x.NewsCount != 0 || y == nil || y.NewsCount != 1 {
		t.Fatalf("counts after concurrent move: X=%d Y=%+v", x.NewsCount, y)
	}
}

func TestUpdateNewsCredibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	n := seedNews(t, svc, "Daily X")

	for _, bad := range []int{-1, 101} {
		_, err := svc.UpdateNewsCredibility(ctx, checker, n.ID, bad)
		wantKind(t, err, apperr.KindInvalidArgument)
	}
	_, err := svc.UpdateNewsCredibility(ctx, alice, n.ID, 50)
	wantKind(t, err, apperr.KindForbidden)
	_, err = svc.UpdateNewsCredibility(ctx, checker, bson.NewObjectID(), 50)
	wantKind(t, err, apperr.KindNotFound)

	view, err := svc.UpdateNewsCredibility(ctx, checker, n.ID, 80)
	if err != nil {
		t.Fatalf("UpdateNewsCredibility: %v", err)
	}
	if view.CredibilityLevel != credibility.VeryHigh || !view.FactChecked {
		t.Errorf("view = %+v", view)
	}
}

func TestDeleteNewsRemovesComments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")
	_, _ = svc.CreateComment(ctx, alice, n.ID, "one", nil)
	_, _ = svc.CreateComment(ctx, bob, n.ID, "two", nil)

	wantKind(t, svc.DeleteNews(ctx, checker, n.ID), apperr.KindForbidden)
	if err := svc.DeleteNews(ctx, admin, n.ID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}
	_, total, _ := store.ListComments(ctx, n.ID, 1, 10)
	if total != 0 {
		t.Errorf("%d comments survived their news item", total)
	}
	wantKind(t, svc.DeleteNews(ctx, admin, n.ID), apperr.KindNotFound)
}

func TestListNewsDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	for i := 0; i < 12; i++ {
		seedNews(t, svc, "Daily X")
	}

	page, err := svc.ListNews(ctx, ListNewsQuery{SortBy: "$where"})
	if err != nil {
		t.Fatalf("ListNews: %v", err)
	}
	if page.Page != 1 || len(page.Items) != 10 || page.Pages != 2 || page.Total != 12 {
		t.Errorf("page = %d, items = %d, pages = %d, total = %d", page.Page, len(page.Items), page.Pages, page.Total)
	}
}

func TestReconcileFixesDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")
	_, _ = svc.CreateComment(ctx, alice, n.ID, "one", nil)
	_ = store.AddCommentsCount(ctx, n.ID, 5)

	_, err := svc.Reconcile(ctx, checker)
	wantKind(t, err, apperr.KindForbidden)

	res, err := svc.Reconcile(ctx, admin)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.CommentsFixed != 1 || res.SourcesFixed != 0 {
		t.Errorf("result = %+v", res)
	}
	got, _ := store.FindNews(ctx, n.ID)
	if got.CommentsCount != 1 {
		t.Errorf("commentsCount = %d, want 1", got.CommentsCount)
	}
}
