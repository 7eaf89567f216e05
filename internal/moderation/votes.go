package moderation

import (
	"context"
	"errors"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// maxLedgerAttempts bounds re-planning after a lost race.
const maxLedgerAttempts = 5

var errLedgerContention = errors.New("ledger precondition kept changing")

// planLedger decides the transition for a user requesting entry type
// requested, given their current entry. Repeating the current type
// retracts it.
func planLedger(userID bson.ObjectID, current string, present bool, requested string) models.LedgerChange {
	switch {
	case !present:
		return models.LedgerChange{Op: models.LedgerAdd, UserID: userID, To: requested}
	case current == requested:
		return models.LedgerChange{Op: models.LedgerRetract, UserID: userID, From: current}
	default:
		return models.LedgerChange{Op: models.LedgerSwitch, UserID: userID, From: current, To: requested}
	}
}

// ledgerOps binds the read and conditional write of one ledger-bearing
// document.
type ledgerOps[T any] struct {
	read     func(ctx context.Context) (current string, present bool, err error)
	apply    func(ctx context.Context, ch models.LedgerChange) (T, error)
	notFound string
}

// runLedger plans from a fresh snapshot and applies, re-planning whenever
// the store reports the snapshot stale.
func runLedger[T any](ctx context.Context, ops ledgerOps[T], userID bson.ObjectID, requested string) (T, error) {
	var zero T
	for attempt := 1; attempt <= maxLedgerAttempts; attempt++ {
		current, present, err := ops.read(ctx)
		if err != nil {
			return zero, storeErr(ctx, err, ops.notFound)
		}

		ch := planLedger(userID, current, present, requested)
		out, err := ops.apply(ctx, ch)
		if errors.Is(err, storage.ErrStale) {
			logger.Ctx(ctx).Debug().
				Str("op", ch.Op.String()).
				Int("attempt", attempt).
				Msg("Ledger snapshot stale, re-planning")
			continue
		}
		if err != nil {
			return zero, storeErr(ctx, err, ops.notFound)
		}
		return out, nil
	}
	return zero, apperr.Transient("vote contention", errLedgerContention)
}

// CastVote toggles the principal's vote on a news item: a first vote is
// recorded, repeating it retracts it and the opposite type switches it.
func (s *Service) CastVote(ctx context.Context, p models.Principal, newsID bson.ObjectID, voteType models.VoteType) (models.VoteTally, error) {
	if err := requireRole(p); err != nil {
		return models.VoteTally{}, err
	}
	if !voteType.Valid() {
		return models.VoteTally{}, apperr.Invalid("Invalid vote type")
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	n, err := runLedger(ctx, ledgerOps[*models.News]{
		read: func(ctx context.Context) (string, bool, error) {
			n, err := s.store.FindNews(ctx, newsID)
			if err != nil {
				return "", false, err
			}
			vt, ok := n.VoteOf(p.UserID)
			return string(vt), ok, nil
		},
		apply: func(ctx context.Context, ch models.LedgerChange) (*models.News, error) {
			return s.store.ApplyVote(ctx, newsID, ch)
		},
		notFound: "News not found",
	}, p.UserID, string(voteType))
	if err != nil {
		return models.VoteTally{}, err
	}
	return n.Tally(), nil
}
