package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/credibility"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	defaultSourceLimit = 20
	maxSourceLimit     = 100
	defaultTopLimit    = 10
	maxTopLimit        = 50

	topSourcesKey = "sources:top"

	msgSourceNotFound = "Source not found"
	msgSourceExists   = "Source already exists"
	msgSourceInUse    = "Source still has news items"
)

var sourceSortFields = map[string]bool{
	"name":             true,
	"credibilityScore": true,
	"newsCount":        true,
	"createdAt":        true,
}

var sourceTypes = map[models.SourceType]bool{
	models.Mainstream:    true,
	models.Alternative:   true,
	models.SocialMedia:   true,
	models.Blog:          true,
	models.Government:    true,
	models.International: true,
}

var biases = map[models.Bias]bool{
	models.BiasLeft:        true,
	models.BiasCenterLeft:  true,
	models.BiasCenter:      true,
	models.BiasCenterRight: true,
	models.BiasRight:       true,
	models.BiasNeutral:     true,
	models.BiasUnknown:     true,
}

type ListSourcesQuery struct {
	Page   int
	Limit  int
	Search string
	SortBy string
	Order  string
}

type SourceInput struct {
	Name        string
	URL         string
	Description string
	Type        models.SourceType
	Bias        models.Bias
}

// SourcePatch is a partial source update; nil fields are left unchanged.
type SourcePatch struct {
	Name             *string
	URL              *string
	Description      *string
	Type             *models.SourceType
	Bias             *models.Bias
	CredibilityScore *int
}

// upsertOnNewsCreate increments the named source's newsCount, creating an
// unverified default source on first use.
func (s *Service) upsertOnNewsCreate(ctx context.Context, name string, now time.Time) error {
	return s.store.IncSourceNewsCount(ctx, name, models.NewSource(name, now))
}

// decrementOnNewsDelete lowers the named source's newsCount, never below 0.
func (s *Service) decrementOnNewsDelete(ctx context.Context, name string) error {
	return s.store.DecSourceNewsCount(ctx, name)
}

func (s *Service) invalidateTopSources(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, topSourcesKey); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to invalidate top sources cache")
	}
}

func (s *Service) ListSources(ctx context.Context, q ListSourcesQuery) (Page[models.Source], error) {
	page, limit := paging(q.Page, q.Limit, defaultSourceLimit, maxSourceLimit)
	sortBy := q.SortBy
	if !sourceSortFields[sortBy] {
		sortBy = "name"
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	items, total, err := s.store.ListSources(ctx, storage.SourceFilter{
		Search: q.Search,
		SortBy: sortBy,
		Desc:   q.Order == "desc",
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return Page[models.Source]{}, storeErr(ctx, err, msgSourceNotFound)
	}
	return newPage(items, page, limit, total), nil
}

func (s *Service) GetSource(ctx context.Context, id bson.ObjectID) (*models.Source, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	src, err := s.store.FindSource(ctx, id)
	if err != nil {
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}
	return src, nil
}

// TopSources returns verified sources by descending credibility score. The
// longest list is cached and sliced per request.
func (s *Service) TopSources(ctx context.Context, limit int) ([]models.Source, error) {
	_, limit = paging(1, limit, defaultTopLimit, maxTopLimit)

	ctx, cancel := s.scope(ctx)
	defer cancel()

	var top []models.Source
	hit := false
	if s.cache != nil {
		var err error
		hit, err = s.cache.GetJSON(ctx, topSourcesKey, &top)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Top sources cache read failed")
			hit = false
		}
	}

	if !hit {
		var err error
		top, err = s.store.TopSources(ctx, maxTopLimit)
		if err != nil {
			return nil, storeErr(ctx, err, msgSourceNotFound)
		}
		if s.cache != nil {
			if err := s.cache.SetJSON(ctx, topSourcesKey, top, s.topTTL); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("Top sources cache write failed")
			}
		}
	}

	if top == nil {
		top = []models.Source{}
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func validSourceKinds(t *models.SourceType, b *models.Bias) error {
	var invalid []string
	if t != nil && !sourceTypes[*t] {
		invalid = append(invalid, "Source type is invalid")
	}
	if b != nil && !biases[*b] {
		invalid = append(invalid, "Bias type is invalid")
	}
	if len(invalid) > 0 {
		return apperr.Invalid("Validation failed", invalid...)
	}
	return nil
}

// CreateSource registers a source. Sources created by an admin start
// verified.
func (s *Service) CreateSource(ctx context.Context, p models.Principal, in SourceInput) (*models.Source, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleFactChecker); err != nil {
		return nil, err
	}

	name := s.clean(in.Name)
	if name == "" {
		return nil, apperr.Invalid("Validation failed", "Source name is required")
	}

	now := s.now()
	src := models.NewSource(name, now)
	src.URL = in.URL
	src.Description = s.clean(in.Description)
	if in.Type != "" {
		src.Type = in.Type
	}
	if in.Bias != "" {
		src.Bias = in.Bias
	}
	if err := validSourceKinds(&src.Type, &src.Bias); err != nil {
		return nil, err
	}
	if p.HasRole(models.RoleAdmin) {
		src.MarkVerified(p.UserID, now)
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	if err := s.store.InsertSource(ctx, src); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict(msgSourceExists)
		}
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}

	s.invalidateTopSources(ctx)
	return src, nil
}

// UpdateSource applies a partial update. An admin update also verifies the
// source.
func (s *Service) UpdateSource(ctx context.Context, p models.Principal, id bson.ObjectID, patch SourcePatch) (*models.Source, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleFactChecker); err != nil {
		return nil, err
	}
	if err := validSourceKinds(patch.Type, patch.Bias); err != nil {
		return nil, err
	}
	if patch.CredibilityScore != nil && !credibility.ValidScore(*patch.CredibilityScore) {
		return nil, apperr.Invalid(msgScoreRange)
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	src, err := s.store.FindSource(ctx, id)
	if err != nil {
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}
	prev := *src

	if patch.Name != nil {
		name := s.clean(*patch.Name)
		if name == "" {
			return nil, apperr.Invalid("Validation failed", "Source name is required")
		}
		src.Name = name
	}
	if patch.URL != nil {
		src.URL = *patch.URL
	}
	if patch.Description != nil {
		src.Description = s.clean(*patch.Description)
	}
	if patch.Type != nil {
		src.Type = *patch.Type
	}
	if patch.Bias != nil {
		src.Bias = *patch.Bias
	}
	if patch.CredibilityScore != nil {
		src.SetCredibility(*patch.CredibilityScore)
	}

	now := s.now()
	if p.HasRole(models.RoleAdmin) {
		src.MarkVerified(p.UserID, now)
	}
	src.UpdatedAt = now

	// News items reference sources by name, so a rename moves them along
	// with the newsCount that counts them.
	err = s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
		if err := s.store.UpdateSourceFields(ctx, src); err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			return s.store.UpdateSourceFields(ctx, &prev)
		})
		if src.Name == prev.Name {
			return nil
		}
		_, err := s.store.RenameNewsSource(ctx, prev.Name, src.Name)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict(msgSourceExists)
		}
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}

	s.invalidateTopSources(ctx)
	return src, nil
}

// UpdateSourceCredibility sets a source's score. When the requester is an
// admin the source is also verified under their name.
func (s *Service) UpdateSourceCredibility(ctx context.Context, p models.Principal, id bson.ObjectID, score int) (*models.Source, error) {
	return s.UpdateSource(ctx, p, id, SourcePatch{CredibilityScore: &score})
}

// DeleteSource removes a source no news item names any more.
func (s *Service) DeleteSource(ctx context.Context, p models.Principal, id bson.ObjectID) error {
	if err := requireRole(p, models.RoleAdmin); err != nil {
		return err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	if err := s.store.DeleteSource(ctx, id); err != nil {
		if errors.Is(err, storage.ErrInUse) {
			return apperr.Conflict(msgSourceInUse)
		}
		return storeErr(ctx, err, msgSourceNotFound)
	}
	s.invalidateTopSources(ctx)
	return nil
}

// VerifySource marks a source verified by the requesting admin. Repeating
// it refreshes the attribution.
func (s *Service) VerifySource(ctx context.Context, p models.Principal, id bson.ObjectID) (*models.Source, error) {
	if err := requireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	src, err := s.store.FindSource(ctx, id)
	if err != nil {
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}

	now := s.now()
	src.MarkVerified(p.UserID, now)
	src.UpdatedAt = now
	if err := s.store.UpdateSourceFields(ctx, src); err != nil {
		return nil, storeErr(ctx, err, msgSourceNotFound)
	}

	s.invalidateTopSources(ctx)
	return src, nil
}
