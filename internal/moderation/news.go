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
	defaultNewsLimit = 10
	maxNewsLimit     = 100

	msgNewsNotFound = "News not found"
	msgScoreRange   = "Credibility score must be between 0 and 100"
)

var newsSortFields = map[string]bool{
	"publishDate":      true,
	"createdAt":        true,
	"credibilityScore": true,
	"upvotes":          true,
	"downvotes":        true,
	"commentsCount":    true,
	"title":            true,
}

type ListNewsQuery struct {
	Page     int
	Limit    int
	Category string
	Source   string
	Search   string
	SortBy   string
	Order    string
}

// NewsInput is the payload of CreateNews.
type NewsInput struct {
	Title            string
	Summary          string
	Content          string
	Source           string
	SourceURL        string
	Category         string
	Image            string
	PublishDate      *time.Time
	CredibilityScore *int
}

// NewsPatch is a partial update; nil fields are left unchanged.
type NewsPatch struct {
	Title            *string
	Summary          *string
	Content          *string
	Source           *string
	SourceURL        *string
	Category         *string
	Image            *string
	PublishDate      *time.Time
	CredibilityScore *int
}

func (s *Service) ListNews(ctx context.Context, q ListNewsQuery) (Page[models.News], error) {
	page, limit := paging(q.Page, q.Limit, defaultNewsLimit, maxNewsLimit)
	sortBy := q.SortBy
	if !newsSortFields[sortBy] {
		sortBy = "publishDate"
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	items, total, err := s.store.ListNews(ctx, storage.NewsFilter{
		Category: q.Category,
		Source:   q.Source,
		Search:   q.Search,
		SortBy:   sortBy,
		Desc:     q.Order != "asc",
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return Page[models.News]{}, storeErr(ctx, err, msgNewsNotFound)
	}
	return newPage(items, page, limit, total), nil
}

func (s *Service) GetNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	n, err := s.store.FindNews(ctx, id)
	if err != nil {
		return nil, storeErr(ctx, err, msgNewsNotFound)
	}
	return n, nil
}

// CreateNews stores a fact-checked news item and bumps its source's
// newsCount, creating the source on first use.
func (s *Service) CreateNews(ctx context.Context, p models.Principal, in NewsInput) (*models.News, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleFactChecker); err != nil {
		return nil, err
	}

	now := s.now()
	n := &models.News{
		Title:     s.clean(in.Title),
		Summary:   s.clean(in.Summary),
		Content:   s.clean(in.Content),
		Source:    s.clean(in.Source),
		SourceURL: in.SourceURL,
		Category:  s.clean(in.Category),
		Image:     in.Image,
		Voters:    []models.Voter{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	n.PublishDate = now
	if in.PublishDate != nil {
		n.PublishDate = in.PublishDate.UTC()
	}

	var missing []string
	for _, f := range []struct{ value, msg string }{
		{n.Title, "Title is required"},
		{n.Summary, "Summary is required"},
		{n.Content, "Content is required"},
		{n.Source, "Source is required"},
		{n.Category, "Category is required"},
	} {
		if f.value == "" {
			missing = append(missing, f.msg)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Invalid("Validation failed", missing...)
	}

	score := 0
	if in.CredibilityScore != nil {
		score = *in.CredibilityScore
	}
	if !credibility.ValidScore(score) {
		return nil, apperr.Invalid(msgScoreRange)
	}
	n.SetCredibility(score)
	n.Certify(p.UserID, now)

	ctx, cancel := s.scope(ctx)
	defer cancel()

	err := s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
		if err := s.store.InsertNews(ctx, n); err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			_, err := s.store.DeleteNews(ctx, n.ID)
			return err
		})
		return s.upsertOnNewsCreate(ctx, n.Source, now)
	})
	if err != nil {
		return nil, storeErr(ctx, err, msgNewsNotFound)
	}

	s.invalidateTopSources(ctx)
	return n, nil
}

// applyNewsPatch writes the non-nil fields of patch into n.
func (s *Service) applyNewsPatch(n *models.News, patch NewsPatch) error {
	var invalid []string
	setText := func(dst *string, v *string, msg string) {
		if v == nil {
			return
		}
		cleaned := s.clean(*v)
		if cleaned == "" {
			invalid = append(invalid, msg)
			return
		}
		*dst = cleaned
	}
	setText(&n.Title, patch.Title, "Title is required")
	setText(&n.Summary, patch.Summary, "Summary is required")
	setText(&n.Content, patch.Content, "Content is required")
	setText(&n.Source, patch.Source, "Source is required")
	setText(&n.Category, patch.Category, "Category is required")
	if len(invalid) > 0 {
		return apperr.Invalid("Validation failed", invalid...)
	}

	if patch.SourceURL != nil {
		n.SourceURL = *patch.SourceURL
	}
	if patch.Image != nil {
		n.Image = *patch.Image
	}
	if patch.PublishDate != nil {
		n.PublishDate = patch.PublishDate.UTC()
	}
	if patch.CredibilityScore != nil {
		if !credibility.ValidScore(*patch.CredibilityScore) {
			return apperr.Invalid(msgScoreRange)
		}
		n.SetCredibility(*patch.CredibilityScore)
	}
	return nil
}

// UpdateNews applies a partial update. Every update re-certifies the item
// under the requester; a source change moves the count between sources.
// The write is conditioned on the source read, and a concurrent move
// causes a re-read and re-plan.
func (s *Service) UpdateNews(ctx context.Context, p models.Principal, id bson.ObjectID, patch NewsPatch) (*models.News, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleFactChecker); err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	for attempt := 1; attempt <= maxLedgerAttempts; attempt++ {
		n, err := s.store.FindNews(ctx, id)
		if err != nil {
			return nil, storeErr(ctx, err, msgNewsNotFound)
		}
		prev := *n
		if err := s.applyNewsPatch(n, patch); err != nil {
			return nil, err
		}

		now := s.now()
		n.Certify(p.UserID, now)
		n.UpdatedAt = now

		err = s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
			if err := s.store.UpdateNewsFields(ctx, n, prev.Source); err != nil {
				return err
			}
			undo.push(func(ctx context.Context) error {
				return s.store.UpdateNewsFields(ctx, &prev, n.Source)
			})
			if n.Source == prev.Source {
				return nil
			}

			if err := s.upsertOnNewsCreate(ctx, n.Source, now); err != nil {
				return err
			}
			undo.push(func(ctx context.Context) error {
				return s.decrementOnNewsDelete(ctx, n.Source)
			})
			return s.decrementOnNewsDelete(ctx, prev.Source)
		})
		if errors.Is(err, storage.ErrStale) {
			logger.Ctx(ctx).Debug().
				Str("id", id.Hex()).
				Int("attempt", attempt).
				Msg("News source changed concurrently, re-planning")
			continue
		}
		if err != nil {
			return nil, storeErr(ctx, err, msgNewsNotFound)
		}

		if n.Source != prev.Source {
			s.invalidateTopSources(ctx)
		}
		return n, nil
	}
	return nil, apperr.Transient("news update contention", errLedgerContention)
}

// DeleteNews removes a news item together with its comments and
// decrements its source's newsCount.
func (s *Service) DeleteNews(ctx context.Context, p models.Principal, id bson.ObjectID) error {
	if err := requireRole(p, models.RoleAdmin); err != nil {
		return err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	err := s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
		n, err := s.store.DeleteNews(ctx, id)
		if err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			return s.store.InsertNews(ctx, n)
		})

		if err := s.decrementOnNewsDelete(ctx, n.Source); err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			return s.upsertOnNewsCreate(ctx, n.Source, s.now())
		})

		_, err = s.store.DeleteCommentsByNews(ctx, id)
		return err
	})
	if err != nil {
		return storeErr(ctx, err, msgNewsNotFound)
	}

	s.invalidateTopSources(ctx)
	return nil
}

// UpdateNewsCredibility assigns an authoritative score and re-certifies
// the item under the requester.
func (s *Service) UpdateNewsCredibility(ctx context.Context, p models.Principal, id bson.ObjectID, score int) (models.CredibilityView, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleFactChecker); err != nil {
		return models.CredibilityView{}, err
	}
	if !credibility.ValidScore(score) {
		return models.CredibilityView{}, apperr.Invalid(msgScoreRange)
	}

	n, err := s.UpdateNews(ctx, p, id, NewsPatch{CredibilityScore: &score})
	if err != nil {
		return models.CredibilityView{}, err
	}
	return models.CredibilityView{
		CredibilityScore: n.CredibilityScore,
		CredibilityLevel: n.CredibilityLevel,
		FactChecked:      n.FactChecked,
	}, nil
}
