package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound  = errors.New("storage: document not found")
	ErrDuplicate = errors.New("storage: duplicate key")
	// ErrStale is returned by conditional ledger updates whose planned
	// precondition no longer matches the stored document.
	ErrStale = errors.New("storage: stale precondition")
	// ErrInUse is returned when deleting a source that news items still
	// name.
	ErrInUse = errors.New("storage: source still referenced")
)

// NewsFilter selects and orders news items. SortBy must be a bson field
// name; the caller whitelists it.
type NewsFilter struct {
	Category string
	Source   string
	Search   string
	SortBy   string
	Desc     bool
	Page     int
	Limit    int
}

type SourceFilter struct {
	Search string
	SortBy string
	Desc   bool
	Page   int
	Limit  int
}

func skip(page, limit int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * limit)
}

type NewsStore interface {
	InsertNews(ctx context.Context, n *models.News) error
	FindNews(ctx context.Context, id bson.ObjectID) (*models.News, error)
	ListNews(ctx context.Context, f NewsFilter) ([]models.News, int64, error)
	// UpdateNewsFields writes content, credibility and fact-check fields
	// provided the stored item still names prevSource; otherwise it returns
	// ErrStale. Counters and the voter ledger are never overwritten by it.
	UpdateNewsFields(ctx context.Context, n *models.News, prevSource string) error
	// RenameNewsSource moves every news item naming from to to.
	RenameNewsSource(ctx context.Context, from, to string) (int64, error)
	DeleteNews(ctx context.Context, id bson.ObjectID) (*models.News, error)
	// AddCommentsCount adds delta to commentsCount, flooring the result at 0.
	AddCommentsCount(ctx context.Context, id bson.ObjectID, delta int) error
	ApplyVote(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.News, error)
}

type CommentStore interface {
	InsertComment(ctx context.Context, c *models.Comment) error
	FindComment(ctx context.Context, id bson.ObjectID) (*models.Comment, error)
	// ListComments returns a page of comments for newsID, newest first.
	ListComments(ctx context.Context, newsID bson.ObjectID, page, limit int) ([]models.Comment, int64, error)
	UpdateCommentContent(ctx context.Context, id bson.ObjectID, content string, at time.Time) (*models.Comment, error)
	// DeleteCommentThread removes a comment and its direct replies and
	// returns what was removed.
	DeleteCommentThread(ctx context.Context, id bson.ObjectID) ([]models.Comment, error)
	DeleteCommentsByNews(ctx context.Context, newsID bson.ObjectID) (int64, error)
	ApplyReaction(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.Comment, error)
	MarkReported(ctx context.Context, id bson.ObjectID, reason string, at time.Time) (*models.Comment, error)
}

type SourceStore interface {
	InsertSource(ctx context.Context, s *models.Source) error
	FindSource(ctx context.Context, id bson.ObjectID) (*models.Source, error)
	FindSourceByName(ctx context.Context, name string) (*models.Source, error)
	ListSources(ctx context.Context, f SourceFilter) ([]models.Source, int64, error)
	// TopSources returns verified sources ordered by credibility score.
	TopSources(ctx context.Context, limit int) ([]models.Source, error)
	// UpdateSourceFields writes everything except newsCount.
	UpdateSourceFields(ctx context.Context, s *models.Source) error
	// DeleteSource removes a source whose newsCount is 0 and returns
	// ErrInUse otherwise.
	DeleteSource(ctx context.Context, id bson.ObjectID) error
	// IncSourceNewsCount increments newsCount of the named source, creating
	// it from seed (with newsCount 1) when absent.
	IncSourceNewsCount(ctx context.Context, name string, seed *models.Source) error
	// DecSourceNewsCount decrements newsCount floored at 0. Missing sources
	// are ignored.
	DecSourceNewsCount(ctx context.Context, name string) error
}

type UserStore interface {
	FindAuthors(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.Author, error)
}

// Store is the persistence collaborator of the moderation engine.
type Store interface {
	NewsStore
	CommentStore
	SourceStore
	UserStore

	// RunInTx runs fn in a multi-document transaction when the backend
	// supports it, and directly otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Transactional reports whether RunInTx rolls back on failure.
	Transactional() bool

	// RecountComments resets every news item's commentsCount to the live
	// comment count and returns how many documents were corrected.
	RecountComments(ctx context.Context) (int, error)
	// RecountSourceNews does the same for Source.newsCount.
	RecountSourceNews(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}
