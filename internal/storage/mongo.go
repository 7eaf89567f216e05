package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	newsCollection     = "news"
	commentsCollection = "comments"
	sourcesCollection  = "sources"
	usersCollection    = "users"
)

// MongoConfig holds the connection settings of the document store.
type MongoConfig struct {
	URI          string
	Database     string
	Transactions bool
	Timeout      time.Duration
}

// Mongo is the MongoDB implementation of Store.
type Mongo struct {
	client   *mongo.Client
	news     *mongo.Collection
	comments *mongo.Collection
	sources  *mongo.Collection
	users    *mongo.Collection
	tx       bool
}

var _ Store = (*Mongo)(nil)

// NewMongo connects, pings the primary and ensures indexes.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	m := &Mongo{
		client:   client,
		news:     db.Collection(newsCollection),
		comments: db.Collection(commentsCollection),
		sources:  db.Collection(sourcesCollection),
		users:    db.Collection(usersCollection),
		tx:       cfg.Transactions,
	}

	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Get().Info().
		Str("database", cfg.Database).
		Bool("transactions", cfg.Transactions).
		Msg("Connected to MongoDB")
	return m, nil
}

// EnsureIndexes creates the indexes the queries and the source name
// uniqueness rely on. It is safe to call repeatedly.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if _, err := m.sources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_source_name"),
	}); err != nil {
		return fmt.Errorf("failed to create sources index: %w", err)
	}

	if _, err := m.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "newsId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("news_created"),
	}); err != nil {
		return fmt.Errorf("failed to create comments index: %w", err)
	}

	if _, err := m.news.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "publishDate", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create news indexes: %w", err)
	}
	return nil
}

func (m *Mongo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.tx {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *Mongo) Transactional() bool {
	return m.tx
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func pageOptions(sortField string, desc bool, page, limit int) *options.FindOptionsBuilder {
	dir := 1
	if desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(skip(page, limit))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// flooredInc returns an update pipeline adding delta to field without
// letting the result drop below zero.
func flooredInc(field string, delta int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			field: bson.M{"$max": bson.A{
				0,
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, delta}},
			}},
		}}},
	}
}

func (m *Mongo) FindAuthors(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.Author, error) {
	out := make(map[bson.ObjectID]models.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := m.users.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "avatar": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find authors: %w", err)
	}
	var authors []models.Author
	if err := cur.All(ctx, &authors); err != nil {
		return nil, fmt.Errorf("failed to decode authors: %w", err)
	}
	for _, a := range authors {
		out[a.ID] = a
	}
	return out, nil
}

// missOrStale explains a conditional write that matched nothing: the
// document is gone (ErrNotFound) or its precondition failed (ErrStale).
func missOrStale(ctx context.Context, coll *mongo.Collection, id bson.ObjectID) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStale
}
