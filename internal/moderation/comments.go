package moderation

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	defaultCommentLimit = 20
	maxCommentLimit     = 100

	msgCommentNotFound = "Comment not found"
)

func (s *Service) validContent(raw string) (string, error) {
	content := s.clean(raw)
	if content == "" {
		return "", apperr.Invalid("Validation failed", "Comment content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", apperr.Invalid("Validation failed", "Comment must be at most 500 characters")
	}
	return content, nil
}

// populate attaches author display fields to comments, and the parent
// comment's author to replies.
func (s *Service) populate(ctx context.Context, comments []models.Comment) ([]models.CommentView, error) {
	parentUser := make(map[bson.ObjectID]bson.ObjectID)
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if _, seen := parentUser[*c.ParentID]; seen {
			continue
		}
		parent, err := s.store.FindComment(ctx, *c.ParentID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		parentUser[*c.ParentID] = parent.UserID
	}

	ids := make([]bson.ObjectID, 0, len(comments)+len(parentUser))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	for _, uid := range parentUser {
		ids = append(ids, uid)
	}
	authors, err := s.store.FindAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		v := models.CommentView{Comment: c}
		if a, ok := authors[c.UserID]; ok {
			v.Author = &a
		}
		if c.ParentID != nil {
			if uid, ok := parentUser[*c.ParentID]; ok {
				if a, ok := authors[uid]; ok {
					v.ParentAuthor = &a
				}
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// ListComments returns a news item's comments, newest first.
func (s *Service) ListComments(ctx context.Context, newsID bson.ObjectID, page, limit int) (Page[models.CommentView], error) {
	page, limit = paging(page, limit, defaultCommentLimit, maxCommentLimit)

	ctx, cancel := s.scope(ctx)
	defer cancel()

	if _, err := s.store.FindNews(ctx, newsID); err != nil {
		return Page[models.CommentView]{}, storeErr(ctx, err, msgNewsNotFound)
	}

	comments, total, err := s.store.ListComments(ctx, newsID, page, limit)
	if err != nil {
		return Page[models.CommentView]{}, storeErr(ctx, err, msgNewsNotFound)
	}
	views, err := s.populate(ctx, comments)
	if err != nil {
		return Page[models.CommentView]{}, storeErr(ctx, err, msgCommentNotFound)
	}
	return newPage(views, page, limit, total), nil
}

// CreateComment adds a comment (or a reply when parentID is set) and
// increments the news item's commentsCount.
func (s *Service) CreateComment(ctx context.Context, p models.Principal, newsID bson.ObjectID, content string, parentID *bson.ObjectID) (*models.CommentView, error) {
	if err := requireRole(p); err != nil {
		return nil, err
	}
	content, err := s.validContent(content)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	if _, err := s.store.FindNews(ctx, newsID); err != nil {
		return nil, storeErr(ctx, err, msgNewsNotFound)
	}
	if err := s.checkParent(ctx, newsID, parentID); err != nil {
		return nil, storeErr(ctx, err, msgCommentNotFound)
	}

	now := s.now()
	c := &models.Comment{
		NewsID:    newsID,
		UserID:    p.UserID,
		Content:   content,
		ParentID:  parentID,
		Reactors:  []models.Reactor{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
		if err := s.store.InsertComment(ctx, c); err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			_, err := s.store.DeleteCommentThread(ctx, c.ID)
			return err
		})
		// The parent may have been deleted since the first check.
		if err := s.checkParent(ctx, newsID, parentID); err != nil {
			return err
		}
		return s.store.AddCommentsCount(ctx, newsID, 1)
	})
	if err != nil {
		return nil, storeErr(ctx, err, msgNewsNotFound)
	}

	views, err := s.populate(ctx, []models.Comment{*c})
	if err != nil {
		// The comment is stored; return it without display fields.
		return &models.CommentView{Comment: *c}, nil
	}
	return &views[0], nil
}

// checkParent verifies that parentID, when set, names a comment on newsID.
func (s *Service) checkParent(ctx context.Context, newsID bson.ObjectID, parentID *bson.ObjectID) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.store.FindComment(ctx, *parentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if parent == nil || parent.NewsID != newsID {
		return apperr.Invalid("Invalid parent comment")
	}
	return nil
}

// UpdateComment replaces the content of a comment. Only its author or an
// admin may edit it.
func (s *Service) UpdateComment(ctx context.Context, p models.Principal, id bson.ObjectID, content string) (*models.Comment, error) {
	if err := requireRole(p); err != nil {
		return nil, err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	c, err := s.store.FindComment(ctx, id)
	if err != nil {
		return nil, storeErr(ctx, err, msgCommentNotFound)
	}
	if err := requireAuthorOrAdmin(p, c.UserID, "Not authorized to update this comment"); err != nil {
		return nil, err
	}
	content, err = s.validContent(content)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateCommentContent(ctx, id, content, s.now())
	if err != nil {
		return nil, storeErr(ctx, err, msgCommentNotFound)
	}
	return updated, nil
}

// DeleteComment removes a comment and its direct replies, decrementing the
// news item's commentsCount by the number removed.
func (s *Service) DeleteComment(ctx context.Context, p models.Principal, id bson.ObjectID) error {
	if err := requireRole(p); err != nil {
		return err
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	c, err := s.store.FindComment(ctx, id)
	if err != nil {
		return storeErr(ctx, err, msgCommentNotFound)
	}
	if err := requireAuthorOrAdmin(p, c.UserID, "Not authorized to delete this comment"); err != nil {
		return err
	}

	err = s.inTx(ctx, func(ctx context.Context, undo *undoStack) error {
		removed, err := s.store.DeleteCommentThread(ctx, id)
		if err != nil {
			return err
		}
		undo.push(func(ctx context.Context) error {
			for i := range removed {
				if err := s.store.InsertComment(ctx, &removed[i]); err != nil {
					return err
				}
			}
			return nil
		})

		err = s.store.AddCommentsCount(ctx, c.NewsID, -len(removed))
		if errors.Is(err, storage.ErrNotFound) {
			// Orphaned thread of a deleted news item.
			return nil
		}
		return err
	})
	return storeErr(ctx, err, msgCommentNotFound)
}

// React records a like or dislike using the same per-user toggle rules as
// news votes.
func (s *Service) React(ctx context.Context, p models.Principal, id bson.ObjectID, reaction models.ReactionType) (models.ReactionTally, error) {
	if err := requireRole(p); err != nil {
		return models.ReactionTally{}, err
	}
	if !reaction.Valid() {
		return models.ReactionTally{}, apperr.Invalid("Invalid reaction type")
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	c, err := runLedger(ctx, ledgerOps[*models.Comment]{
		read: func(ctx context.Context) (string, bool, error) {
			c, err := s.store.FindComment(ctx, id)
			if err != nil {
				return "", false, err
			}
			rt, ok := c.ReactionOf(p.UserID)
			return string(rt), ok, nil
		},
		apply: func(ctx context.Context, ch models.LedgerChange) (*models.Comment, error) {
			return s.store.ApplyReaction(ctx, id, ch)
		},
		notFound: msgCommentNotFound,
	}, p.UserID, string(reaction))
	if err != nil {
		return models.ReactionTally{}, err
	}
	return models.ReactionTally{Likes: c.Likes, Dislikes: c.Dislikes}, nil
}

// Report flags a comment for moderation. Repeated reports overwrite the
// stored reason.
func (s *Service) Report(ctx context.Context, p models.Principal, id bson.ObjectID, reason string) error {
	if err := requireRole(p); err != nil {
		return err
	}
	reason = s.clean(reason)
	if utf8.RuneCountInString(reason) > models.MaxReportReason {
		return apperr.Invalid("Validation failed", "Report reason must be at most 200 characters")
	}
	if reason == "" {
		reason = models.DefaultReportText
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	_, err := s.store.MarkReported(ctx, id, reason, s.now())
	return storeErr(ctx, err, msgCommentNotFound)
}
