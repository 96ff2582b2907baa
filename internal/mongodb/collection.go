package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound reports a lookup that matched no document. Callers treat it as
// an expected outcome, not a failure.
var ErrNotFound = errors.New("mongodb: document not found")

// FindQuery carries the sort/skip/limit shape used by list operations.
// Limit <= 0 means no cap.
type FindQuery struct {
	Sort  bson.D
	Skip  int64
	Limit int64
}

// Collection is a value type bound to a single named collection.
type Collection struct {
	Name string
	Col  *mongo.Collection

	logger *logrus.Entry
}

// InsertOne persists doc, assigning its id and timestamps in place.
func (c Collection) InsertOne(ctx context.Context, doc interface{}) (err error) {
	start := time.Now()

	defer func() {
		l := c.logger.WithFields(logrus.Fields{
			"operation": "insert",
			"elapsed":   time.Since(start).String(),
		})

		if err != nil {
			l.Errorf("insert into %s failed: %v", c.Name, err)
			return
		}
		l.Debugf("inserted into %s", c.Name)
	}()

	setID(doc)
	timestamps(doc, start.UTC())

	_, err = c.Col.InsertOne(ctx, doc)
	return
}

func (c Collection) FindOne(ctx context.Context, out interface{}, filter interface{}) error {
	res := c.Col.FindOne(ctx, filter)

	if err := res.Err(); err != nil {
		return wrapNotFound(err)
	}
	return res.Decode(out)
}

func (c Collection) FindByID(ctx context.Context, out interface{}, id interface{}) error {
	return c.FindOne(ctx, out, bson.M{"_id": id})
}

// FindMany decodes every matching document into out (a pointer to a slice).
func (c Collection) FindMany(ctx context.Context, out interface{}, q FindQuery) error {
	opts := options.Find()

	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := c.Col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

// FindByIDAndUpdate applies set as a $set patch, refreshing updated_at, and
// decodes the post-update document into out.
func (c Collection) FindByIDAndUpdate(ctx context.Context, out interface{}, id interface{}, set bson.M) error {
	patch := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range set {
		patch[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	res := c.Col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patch}, opts)
	if err := res.Err(); err != nil {
		return wrapNotFound(err)
	}
	return res.Decode(out)
}

// FindByIDAndDelete removes the document, reporting whether one existed.
func (c Collection) FindByIDAndDelete(ctx context.Context, id interface{}) (bool, error) {
	res := c.Col.FindOneAndDelete(ctx, bson.M{"_id": id})

	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
