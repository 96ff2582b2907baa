package posts

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/postline/postline/internal/mongodb"
)

// mongoStore adapts a mongodb collection to the Store capability set.
type mongoStore struct {
	col mongodb.Collection
}

// NewStore binds the service's Store to col.
func NewStore(col mongodb.Collection) Store {
	return &mongoStore{col: col}
}

func (s *mongoStore) InsertOne(ctx context.Context, post *Post) error {
	return s.col.InsertOne(ctx, post)
}

func (s *mongoStore) FindMany(ctx context.Context, out *[]Post, q mongodb.FindQuery) error {
	return s.col.FindMany(ctx, out, q)
}

func (s *mongoStore) FindByID(ctx context.Context, out *Post, id primitive.ObjectID) error {
	return s.col.FindByID(ctx, out, id)
}

func (s *mongoStore) FindByIDAndUpdate(ctx context.Context, out *Post, id primitive.ObjectID, set bson.M) error {
	return s.col.FindByIDAndUpdate(ctx, out, id, set)
}

func (s *mongoStore) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.col.FindByIDAndDelete(ctx, id)
}
