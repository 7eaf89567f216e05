package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (m *Mongo) InsertNews(ctx context.Context, n *models.News) error {
	if n.ID.IsZero() {
		n.ID = bson.NewObjectID()
	}
	if n.Voters == nil {
		n.Voters = []models.Voter{}
	}
	if _, err := m.news.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert news: %w", translate(err))
	}
	return nil
}

func (m *Mongo) FindNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	var n models.News
	if err := m.news.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func newsQuery(f NewsFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Source != "" {
		q["source"] = f.Source
	}
	if f.Search != "" {
		rx := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"summary": rx},
		}
	}
	return q
}

func (m *Mongo) ListNews(ctx context.Context, f NewsFilter) ([]models.News, int64, error) {
	q := newsQuery(f)

	total, err := m.news.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count news: %w", err)
	}

	sortField := f.SortBy
	if sortField == "" {
		sortField = "publishDate"
	}
	cur, err := m.news.Find(ctx, q, pageOptions(sortField, f.Desc, f.Page, f.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list news: %w", err)
	}

	items := []models.News{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode news: %w", err)
	}
	return items, total, nil
}

func (m *Mongo) UpdateNewsFields(ctx context.Context, n *models.News, prevSource string) error {
	set := bson.M{
		"title":            n.Title,
		"summary":          n.Summary,
		"content":          n.Content,
		"source":           n.Source,
		"sourceUrl":        n.SourceURL,
		"category":         n.Category,
		"image":            n.Image,
		"publishDate":      n.PublishDate,
		"credibilityScore": n.CredibilityScore,
		"credibilityLevel": n.CredibilityLevel,
		"factChecked":      n.FactChecked,
		"factCheckerId":    n.FactCheckerID,
		"factCheckDate":    n.FactCheckDate,
		"updatedAt":        n.UpdatedAt,
	}

	res, err := m.news.UpdateOne(ctx, bson.M{"_id": n.ID, "source": prevSource}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update news: %w", err)
	}
	if res.MatchedCount == 0 {
		return missOrStale(ctx, m.news, n.ID)
	}
	return nil
}

func (m *Mongo) RenameNewsSource(ctx context.Context, from, to string) (int64, error) {
	res, err := m.news.UpdateMany(ctx, bson.M{"source": from}, bson.M{"$set": bson.M{"source": to}})
	if err != nil {
		return 0, fmt.Errorf("failed to rename news source: %w", err)
	}
	return res.ModifiedCount, nil
}

func (m *Mongo) DeleteNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	var n models.News
	if err := m.news.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (m *Mongo) AddCommentsCount(ctx context.Context, id bson.ObjectID, delta int) error {
	res, err := m.news.UpdateOne(ctx, bson.M{"_id": id}, flooredInc("commentsCount", delta))
	if err != nil {
		return fmt.Errorf("failed to update comments count: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ApplyVote(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.News, error) {
	var n models.News
	if err := voteLedger.apply(ctx, m.news, id, ch, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// RecountComments groups live comments by news item and corrects every
// commentsCount that drifted.
func (m *Mongo) RecountComments(ctx context.Context) (int, error) {
	cur, err := m.comments.Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{"_id": "$newsId", "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate comments: %w", err)
	}
	var groups []struct {
		ID    bson.ObjectID `bson:"_id"`
		Count int           `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return 0, fmt.Errorf("failed to decode comment counts: %w", err)
	}

	live := make(map[bson.ObjectID]int, len(groups))
	for _, g := range groups {
		live[g.ID] = g.Count
	}

	newsCur, err := m.news.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"commentsCount": 1}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to scan news: %w", err)
	}
	defer newsCur.Close(ctx)

	fixed := 0
	for newsCur.Next(ctx) {
		var doc struct {
			ID            bson.ObjectID `bson:"_id"`
			CommentsCount int           `bson:"commentsCount"`
		}
		if err := newsCur.Decode(&doc); err != nil {
			return fixed, fmt.Errorf("failed to decode news: %w", err)
		}
		if doc.CommentsCount == live[doc.ID] {
			continue
		}
		if _, err := m.news.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"commentsCount": live[doc.ID]}},
		); err != nil {
			return fixed, fmt.Errorf("failed to fix comments count: %w", err)
		}
		fixed++
	}
	return fixed, newsCur.Err()
}
