package moderation

import (
	"context"

	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
)

// ReconcileResult reports how many documents had drifted counters.
type ReconcileResult struct {
	CommentsFixed int `json:"commentsFixed"`
	SourcesFixed  int `json:"sourcesFixed"`
}

// Reconcile recomputes commentsCount and newsCount from the stored
// comments and news. It runs without the per-operation timeout since it
// scans whole collections.
func (s *Service) Reconcile(ctx context.Context, p models.Principal) (ReconcileResult, error) {
	if err := requireRole(p, models.RoleAdmin); err != nil {
		return ReconcileResult{}, err
	}
	return s.reconcile(ctx)
}

// ReconcileAll is the unauthenticated entry point used by the CLI.
func (s *Service) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	return s.reconcile(ctx)
}

func (s *Service) reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	var err error

	res.CommentsFixed, err = s.store.RecountComments(ctx)
	if err != nil {
		return res, storeErr(ctx, err, msgNewsNotFound)
	}
	res.SourcesFixed, err = s.store.RecountSourceNews(ctx)
	if err != nil {
		return res, storeErr(ctx, err, msgSourceNotFound)
	}

	if res.SourcesFixed > 0 {
		s.invalidateTopSources(ctx)
	}
	logger.Ctx(ctx).Info().
		Int("comments_fixed", res.CommentsFixed).
		Int("sources_fixed", res.SourcesFixed).
		Msg("Counters reconciled")
	return res, nil
}
