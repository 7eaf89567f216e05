package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ledger describes a per-user array of typed entries together with the
// counter field kept for each entry type.
type ledger struct {
	array    string
	typeKey  string
	counters map[string]string
}

var (
	voteLedger = ledger{
		array:   "voters",
		typeKey: "voteType",
		counters: map[string]string{
			string(models.Upvote):   "upvotes",
			string(models.Downvote): "downvotes",
		},
	}
	reactionLedger = ledger{
		array:   "reactors",
		typeKey: "reactionType",
		counters: map[string]string{
			string(models.Like):    "likes",
			string(models.Dislike): "dislikes",
		},
	}
)

func (l ledger) counter(entryType string) (string, error) {
	field, ok := l.counters[entryType]
	if !ok {
		return "", fmt.Errorf("unknown %s %q", l.typeKey, entryType)
	}
	return field, nil
}

// build returns a filter that only matches while the change's precondition
// holds, and the update that performs it.
func (l ledger) build(id bson.ObjectID, ch models.LedgerChange) (bson.M, bson.M, error) {
	userKey := l.array + ".userId"

	switch ch.Op {
	case models.LedgerAdd:
		to, err := l.counter(ch.To)
		if err != nil {
			return nil, nil, err
		}
		filter := bson.M{"_id": id, userKey: bson.M{"$ne": ch.UserID}}
		update := bson.M{
			"$push": bson.M{l.array: bson.M{"userId": ch.UserID, l.typeKey: ch.To}},
			"$inc":  bson.M{to: 1},
		}
		return filter, update, nil

	case models.LedgerRetract:
		from, err := l.counter(ch.From)
		if err != nil {
			return nil, nil, err
		}
		update := bson.M{
			"$pull": bson.M{l.array: bson.M{"userId": ch.UserID}},
			"$inc":  bson.M{from: -1},
		}
		return l.entryFilter(id, ch), update, nil

	case models.LedgerSwitch:
		from, err := l.counter(ch.From)
		if err != nil {
			return nil, nil, err
		}
		to, err := l.counter(ch.To)
		if err != nil {
			return nil, nil, err
		}
		update := bson.M{
			"$set": bson.M{l.array + ".$." + l.typeKey: ch.To},
			"$inc": bson.M{from: -1, to: 1},
		}
		return l.entryFilter(id, ch), update, nil
	}
	return nil, nil, fmt.Errorf("unsupported ledger op %s", ch.Op)
}

func (l ledger) entryFilter(id bson.ObjectID, ch models.LedgerChange) bson.M {
	return bson.M{
		"_id": id,
		l.array: bson.M{"$elemMatch": bson.M{
			"userId":  ch.UserID,
			l.typeKey: ch.From,
		}},
	}
}

// apply runs the conditional update and decodes the updated document into
// out. A miss is reported as ErrNotFound or ErrStale depending on whether
// the document still exists.
func (l ledger) apply(ctx context.Context, coll *mongo.Collection, id bson.ObjectID, ch models.LedgerChange, out interface{}) error {
	filter, update, err := l.build(id, ch)
	if err != nil {
		return err
	}

	err = coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to update %s: %w", l.array, err)
	}

	return missOrStale(ctx, coll, id)
}
