package mongodb

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the embeddable identity/timestamp base for ObjectID-keyed
// records. Embed with `bson:",inline"`.
type Document struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// DocumentUUID is the uuid-keyed variant.
type DocumentUUID struct {
	ID uuid.UUID `bson:"_id" json:"id"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
