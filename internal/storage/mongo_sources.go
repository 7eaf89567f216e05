package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (m *Mongo) InsertSource(ctx context.Context, s *models.Source) error {
	if s.ID.IsZero() {
		s.ID = bson.NewObjectID()
	}
	if _, err := m.sources.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert source: %w", translate(err))
	}
	return nil
}

func (m *Mongo) FindSource(ctx context.Context, id bson.ObjectID) (*models.Source, error) {
	return m.findSource(ctx, bson.M{"_id": id})
}

func (m *Mongo) FindSourceByName(ctx context.Context, name string) (*models.Source, error) {
	return m.findSource(ctx, bson.M{"name": name})
}

func (m *Mongo) findSource(ctx context.Context, q bson.M) (*models.Source, error) {
	var s models.Source
	if err := m.sources.FindOne(ctx, q).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (m *Mongo) ListSources(ctx context.Context, f SourceFilter) ([]models.Source, int64, error) {
	q := bson.M{}
	if f.Search != "" {
		q["name"] = bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}

	total, err := m.sources.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sources: %w", err)
	}

	sortField := f.SortBy
	if sortField == "" {
		sortField = "name"
	}
	cur, err := m.sources.Find(ctx, q, pageOptions(sortField, f.Desc, f.Page, f.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sources: %w", err)
	}

	items := []models.Source{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode sources: %w", err)
	}
	return items, total, nil
}

func (m *Mongo) TopSources(ctx context.Context, limit int) ([]models.Source, error) {
	cur, err := m.sources.Find(ctx, bson.M{"verified": true}, pageOptions("credibilityScore", true, 1, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list top sources: %w", err)
	}
	items := []models.Source{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	return items, nil
}

func (m *Mongo) UpdateSourceFields(ctx context.Context, s *models.Source) error {
	set := bson.M{
		"name":             s.Name,
		"url":              s.URL,
		"description":      s.Description,
		"credibilityScore": s.CredibilityScore,
		"credibilityLevel": s.CredibilityLevel,
		"type":             s.Type,
		"bias":             s.Bias,
		"verified":         s.Verified,
		"verifiedBy":       s.VerifiedBy,
		"verifiedDate":     s.VerifiedDate,
		"updatedAt":        s.UpdatedAt,
	}

	res, err := m.sources.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update source: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteSource(ctx context.Context, id bson.ObjectID) error {
	res, err := m.sources.DeleteOne(ctx, bson.M{"_id": id, "newsCount": bson.M{"$lte": 0}})
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if res.DeletedCount == 0 {
		err := missOrStale(ctx, m.sources, id)
		if errors.Is(err, ErrStale) {
			return ErrInUse
		}
		return err
	}
	return nil
}

// seedFields is the $setOnInsert document for a source created by the
// news cascade.
func seedFields(seed *models.Source) bson.M {
	return bson.M{
		"credibilityScore": seed.CredibilityScore,
		"credibilityLevel": seed.CredibilityLevel,
		"type":             seed.Type,
		"bias":             seed.Bias,
		"verified":         seed.Verified,
		"createdAt":        seed.CreatedAt,
		"updatedAt":        seed.UpdatedAt,
	}
}

func (m *Mongo) IncSourceNewsCount(ctx context.Context, name string, seed *models.Source) error {
	update := bson.M{
		"$inc":         bson.M{"newsCount": 1},
		"$setOnInsert": seedFields(seed),
	}
	opts := options.UpdateOne().SetUpsert(true)

	_, err := m.sources.UpdateOne(ctx, bson.M{"name": name}, update, opts)
	if retryUpsert(err, mongo.SessionFromContext(ctx) != nil) {
		// Two upserts raced on the unique name index; the loser retries
		// as a plain increment.
		_, err = m.sources.UpdateOne(ctx, bson.M{"name": name}, update, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to increment source news count: %w", err)
	}
	return nil
}

// retryUpsert reports whether a failed upsert may be retried in place. A
// duplicate key error aborts the server-side transaction, so inside one
// the error is returned to the caller.
func retryUpsert(err error, inTx bool) bool {
	return !inTx && mongo.IsDuplicateKeyError(err)
}

func (m *Mongo) DecSourceNewsCount(ctx context.Context, name string) error {
	if _, err := m.sources.UpdateOne(ctx, bson.M{"name": name}, flooredInc("newsCount", -1)); err != nil {
		return fmt.Errorf("failed to decrement source news count: %w", err)
	}
	return nil
}

// RecountSourceNews recomputes newsCount from the news collection. Names
// with news but no source document get a default source.
func (m *Mongo) RecountSourceNews(ctx context.Context) (int, error) {
	cur, err := m.news.Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{"_id": "$source", "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate news: %w", err)
	}
	var groups []struct {
		Name  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return 0, fmt.Errorf("failed to decode news counts: %w", err)
	}

	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.Name] = g.Count
	}

	srcCur, err := m.sources.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"name": 1, "newsCount": 1}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to scan sources: %w", err)
	}
	defer srcCur.Close(ctx)

	fixed := 0
	for srcCur.Next(ctx) {
		var doc struct {
			ID        bson.ObjectID `bson:"_id"`
			Name      string        `bson:"name"`
			NewsCount int           `bson:"newsCount"`
		}
		if err := srcCur.Decode(&doc); err != nil {
			return fixed, fmt.Errorf("failed to decode source: %w", err)
		}
		want := counts[doc.Name]
		delete(counts, doc.Name)
		if doc.NewsCount == want {
			continue
		}
		if _, err := m.sources.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"newsCount": want}},
		); err != nil {
			return fixed, fmt.Errorf("failed to fix news count: %w", err)
		}
		fixed++
	}
	if err := srcCur.Err(); err != nil {
		return fixed, err
	}

	now := time.Now().UTC()
	for name, n := range counts {
		s := models.NewSource(name, now)
		s.NewsCount = n
		err := m.InsertSource(ctx, s)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
