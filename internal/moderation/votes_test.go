package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestPlanLedger(t *testing.T) {
	t.Parallel()
	u := bson.NewObjectID()

	cases := []struct {
		current   string
		present   bool
		requested string
		want      models.LedgerOp
	}{
		{"", false, "upvote", models.LedgerAdd},
		{"upvote", true, "upvote", models.LedgerRetract},
		{"upvote", true, "downvote", models.LedgerSwitch},
	}
	for _, tc := range cases {
		ch := planLedger(u, tc.current, tc.present, tc.requested)
		if ch.Op != tc.want {
			t.Errorf("plan(%q, %v, %q) = %s, want %s", tc.current, tc.present, tc.requested, ch.Op, tc.want)
		}
	}
}

func TestCastVoteValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	n := seedNews(t, svc, "Daily X")

	_, err := svc.CastVote(ctx, alice, n.ID, "sideways")
	wantKind(t, err, apperr.KindInvalidArgument)

	_, err = svc.CastVote(ctx, alice, bson.NewObjectID(), models.Upvote)
	wantKind(t, err, apperr.KindNotFound)

	_, err = svc.CastVote(ctx, models.Principal{}, n.ID, models.Upvote)
	wantKind(t, err, apperr.KindUnauthorized)
}

func TestConcurrentVotesConserveCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	n := seedNews(t, svc, "Daily X")

	const voters = 40
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.Principal{UserID: bson.NewObjectID(), Role: models.RoleUser}
			vt := models.Upvote
			if i%2 == 1 {
				vt = models.Downvote
			}
			// Three casts: add, retract, add again.
			for j := 0; j < 3; j++ {
				if _, err := svc.CastVote(ctx, p, n.ID, vt); err != nil {
					t.Errorf("CastVote: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	got, _ := store.FindNews(ctx, n.ID)
	if got.Upvotes != voters/2 || got.Downvotes != voters/2 {
		t.Errorf("counters = %d/%d, want %d/%d", got.Upvotes, got.Downvotes, voters/2, voters/2)
	}
	if got.Upvotes+got.Downvotes != len(got.Voters) {
		t.Errorf("%d votes but %d voter entries", got.Upvotes+got.Downvotes, len(got.Voters))
	}
}

// staleStore reports the first n vote applications as stale.
type staleStore struct {
	*storage.Memory
	mu    sync.Mutex
	stale int
}

func (s *staleStore) ApplyVote(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.News, error) {
	s.mu.Lock()
	if s.stale > 0 {
		s.stale--
		s.mu.Unlock()
		return nil, storage.ErrStale
	}
	s.mu.Unlock()
	return s.Memory.ApplyVote(ctx, id, ch)
}

func TestCastVoteReplansOnStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &staleStore{Memory: storage.NewMemory(), stale: 2}
	svc := newServiceWith(store)
	n := seedNews(t, svc, "Daily X")

	tally, err := svc.CastVote(ctx, alice, n.ID, models.Upvote)
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if tally.Upvotes != 1 {
		t.Errorf("upvotes = %d, want 1", tally.Upvotes)
	}

	store.stale = maxLedgerAttempts
	_, err = svc.CastVote(ctx, bob, n.ID, models.Upvote)
	wantKind(t, err, apperr.KindTransient)
}
