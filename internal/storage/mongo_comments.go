package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (m *Mongo) InsertComment(ctx context.Context, c *models.Comment) error {
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	if c.Reactors == nil {
		c.Reactors = []models.Reactor{}
	}
	if _, err := m.comments.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert comment: %w", translate(err))
	}
	return nil
}

func (m *Mongo) FindComment(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (m *Mongo) ListComments(ctx context.Context, newsID bson.ObjectID, page, limit int) ([]models.Comment, int64, error) {
	q := bson.M{"newsId": newsID}

	total, err := m.comments.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	cur, err := m.comments.Find(ctx, q, pageOptions("createdAt", true, page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}

	items := []models.Comment{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode comments: %w", err)
	}
	return items, total, nil
}

func (m *Mongo) updateComment(ctx context.Context, id bson.ObjectID, set bson.M) (*models.Comment, error) {
	var c models.Comment
	err := m.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (m *Mongo) UpdateCommentContent(ctx context.Context, id bson.ObjectID, content string, at time.Time) (*models.Comment, error) {
	return m.updateComment(ctx, id, bson.M{"content": content, "updatedAt": at})
}

func (m *Mongo) MarkReported(ctx context.Context, id bson.ObjectID, reason string, at time.Time) (*models.Comment, error) {
	return m.updateComment(ctx, id, bson.M{
		"reported":     true,
		"reportReason": reason,
		"updatedAt":    at,
	})
}

func (m *Mongo) DeleteCommentThread(ctx context.Context, id bson.ObjectID) ([]models.Comment, error) {
	var root models.Comment
	if err := m.comments.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&root); err != nil {
		return nil, translate(err)
	}
	removed := []models.Comment{root}

	cur, err := m.comments.Find(ctx, bson.M{"parentId": id})
	if err != nil {
		return removed, fmt.Errorf("failed to find replies: %w", err)
	}
	var replies []models.Comment
	if err := cur.All(ctx, &replies); err != nil {
		return removed, fmt.Errorf("failed to decode replies: %w", err)
	}
	if len(replies) == 0 {
		return removed, nil
	}

	ids := make([]bson.ObjectID, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.ID)
	}
	res, err := m.comments.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return removed, fmt.Errorf("failed to delete replies: %w", err)
	}
	// Trim to the number actually deleted so callers decrement by what
	// this call removed.
	if int(res.DeletedCount) < len(replies) {
		replies = replies[:res.DeletedCount]
	}
	return append(removed, replies...), nil
}

func (m *Mongo) DeleteCommentsByNews(ctx context.Context, newsID bson.ObjectID) (int64, error) {
	res, err := m.comments.DeleteMany(ctx, bson.M{"newsId": newsID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) ApplyReaction(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.Comment, error) {
	var c models.Comment
	if err := reactionLedger.apply(ctx, m.comments, id, ch, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
