// Package posts owns the post resource lifecycle: CRUD semantics, pagination,
// and validation. Persistence goes through the Store capability set; the
// document database is the sole arbiter of per-record consistency.
package posts

import (
	"github.com/postline/postline/internal/mongodb"
)

// TopicPostAdded is the fixed bus topic carrying freshly created posts.
const TopicPostAdded = "postAdded"

// Post is the sole domain record. The store assigns ID and CreatedAt on
// insert; UpdatedAt refreshes on every successful update. Title and Body are
// never empty for a persisted record.
type Post struct {
	mongodb.Document `bson:",inline"`

	Title string `bson:"title" json:"title"`
	Body  string `bson:"body" json:"body"`
}

// UpdatePost carries a partial patch: nil fields are left unchanged.
type UpdatePost struct {
	Title *string
	Body  *string
}
