// Package moderation implements the community trust and moderation engine:
// news voting, credibility assignment, the comment lifecycle and the source
// registry, together with the counter cascades that tie them together.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/cache"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/storage"
	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultTopSourcesTTL = 5 * time.Minute
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// Timeout bounds every operation's store work.
	Timeout       time.Duration
	TopSourcesTTL time.Duration
	Now           func() time.Time
}

// Service is the moderation facade used by the HTTP layer and the CLI.
type Service struct {
	store   storage.Store
	cache   cache.RedisInterface
	policy  *bluemonday.Policy
	now     func() time.Time
	timeout time.Duration
	topTTL  time.Duration
}

// NewService wires the engine. cache may be nil, in which case top sources
// are always read from the store.
func NewService(store storage.Store, c cache.RedisInterface, opts Options) *Service {
	s := &Service{
		store:   store,
		cache:   c,
		policy:  bluemonday.StrictPolicy(),
		now:     opts.Now,
		timeout: opts.Timeout,
		topTTL:  opts.TopSourcesTTL,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.topTTL <= 0 {
		s.topTTL = defaultTopSourcesTTL
	}
	return s
}

// scope bounds an operation by the configured timeout.
func (s *Service) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr converts a storage failure into an apperr. notFound is the
// message used when the addressed document is missing.
func storeErr(ctx context.Context, err error, notFound string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.Transient("store timeout", err)
	}
	logger.Ctx(ctx).Error().Err(err).Msg("Store operation failed")
	return apperr.Transient("store failure", err)
}

// undoStack collects compensating actions for stores without rollback.
type undoStack []func(ctx context.Context) error

func (u *undoStack) push(f func(ctx context.Context) error) {
	*u = append(*u, f)
}

// inTx runs fn in a store transaction. When the store cannot roll back, the
// compensations fn registered are replayed in reverse on failure.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, undo *undoStack) error) error {
	var undo undoStack
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		undo = undo[:0]
		return fn(ctx, &undo)
	})
	if err == nil || s.store.Transactional() {
		return err
	}

	cctx := context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		if uerr := undo[i](cctx); uerr != nil {
			logger.Ctx(ctx).Error().Err(uerr).Msg("Compensating action failed")
		}
	}
	return err
}
