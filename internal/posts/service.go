package posts

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/postline/postline/internal/mongodb"
)

// Store is the persistence capability set the service consumes. The
// production implementation wraps a mongodb collection; tests substitute a
// fake.
type Store interface {
	InsertOne(ctx context.Context, post *Post) error
	FindMany(ctx context.Context, out *[]Post, q mongodb.FindQuery) error
	FindByID(ctx context.Context, out *Post, id primitive.ObjectID) error
	FindByIDAndUpdate(ctx context.Context, out *Post, id primitive.ObjectID, set bson.M) error
	FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// Service owns post CRUD business logic and pagination semantics.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns posts newest-first. A page above the end yields an empty
// slice, never an error. limit <= 0 means no cap; page <= 0 starts at the
// first record.
func (s *Service) List(ctx context.Context, page, limit int) ([]Post, error) {
	q := mongodb.FindQuery{
		Sort: bson.D{{Key: "created_at", Value: -1}},
	}

	if limit > 0 {
		q.Limit = int64(limit)
		if page > 0 {
			q.Skip = int64(page-1) * int64(limit)
		}
	}

	out := []Post{}
	if err := s.store.FindMany(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the post with id, or (nil, nil) when no such post exists.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var post Post
	if err := s.store.FindByID(ctx, &post, oid); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create validates and persists a new post. The returned record carries the
// store-assigned id and matching created/updated timestamps.
func (s *Service) Create(ctx context.Context, title, body string) (*Post, error) {
	if title == "" {
		return nil, &ValidationError{Field: "title"}
	}
	if body == "" {
		return nil, &ValidationError{Field: "body"}
	}

	post := &Post{Title: title, Body: body}
	if err := s.store.InsertOne(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update applies the supplied fields only. An empty patch still refreshes
// UpdatedAt to reflect the write. Returns (nil, nil) when id matches nothing.
func (s *Service) Update(ctx context.Context, id string, in UpdatePost) (*Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, &ValidationError{Field: "title"}
		}
		set["title"] = *in.Title
	}
	if in.Body != nil {
		if *in.Body == "" {
			return nil, &ValidationError{Field: "body"}
		}
		set["body"] = *in.Body
	}

	var post Post
	if err := s.store.FindByIDAndUpdate(ctx, &post, oid, set); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Delete removes the post with id, reporting whether one existed. Repeated
// deletes of the same id settle on false.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	return s.store.FindByIDAndDelete(ctx, oid)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
