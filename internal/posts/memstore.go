package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/postline/postline/internal/mongodb"
)

// MemoryStore mirrors the collection contract in memory: ids and timestamps
// are assigned on insert, updates refresh UpdatedAt, lookups miss with
// mongodb.ErrNotFound. Tests and single-node experiments use it in place of
// the database; a deterministic clock keeps ordering assertions stable.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[primitive.ObjectID]Post
	clock time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[primitive.ObjectID]Post),
		clock: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the store clock; callers hold mu.
func (m *MemoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *MemoryStore) InsertOne(_ context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now

	m.docs[post.ID] = *post
	return nil
}

func (m *MemoryStore) FindMany(_ context.Context, out *[]Post, q mongodb.FindQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Post, 0, len(m.docs))
	for _, p := range m.docs {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if q.Skip > 0 {
		if q.Skip >= int64(len(all)) {
			all = nil
		} else {
			all = all[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(all)) > q.Limit {
		all = all[:q.Limit]
	}

	*out = append((*out)[:0], all...)
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, out *Post, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.docs[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	*out = post
	return nil
}

func (m *MemoryStore) FindByIDAndUpdate(_ context.Context, out *Post, id primitive.ObjectID, set bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.docs[id]
	if !ok {
		return mongodb.ErrNotFound
	}

	if title, ok := set["title"].(string); ok {
		post.Title = title
	}
	if body, ok := set["body"].(string); ok {
		post.Body = body
	}
	post.UpdatedAt = m.tick()

	m.docs[id] = post
	*out = post
	return nil
}

func (m *MemoryStore) FindByIDAndDelete(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
