package mongodb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fieldsTestDocument struct {
	Document `bson:",inline"`
}

type fieldsTestDocumentUUID struct {
	DocumentUUID `bson:",inline"`
}

func TestSetID(t *testing.T) {
	t.Run("it should assign an ObjectID once", func(t *testing.T) {
		doc := &fieldsTestDocument{}

		setID(doc)
		assert.False(t, doc.ID.IsZero())

		assigned := doc.ID
		setID(doc)
		assert.Equal(t, assigned, doc.ID)
	})

	t.Run("it should assign a uuid once", func(t *testing.T) {
		doc := &fieldsTestDocumentUUID{}

		setID(doc)
		assert.NotEqual(t, uuid.Nil, doc.ID)

		assigned := doc.ID
		setID(doc)
		assert.Equal(t, assigned, doc.ID)
	})
}

func TestTimestamps(t *testing.T) {
	t.Run("it should stamp created and updated together on first write", func(t *testing.T) {
		doc := &fieldsTestDocument{}
		now := time.Now().UTC()

		timestamps(doc, now)

		assert.Equal(t, now, doc.CreatedAt)
		assert.Equal(t, now, doc.UpdatedAt)
	})

	t.Run("it should only refresh updated on later writes", func(t *testing.T) {
		doc := &fieldsTestDocument{}
		first := time.Now().UTC()
		timestamps(doc, first)

		second := first.Add(time.Minute)
		timestamps(doc, second)

		assert.Equal(t, first, doc.CreatedAt)
		assert.Equal(t, second, doc.UpdatedAt)
	})
}

func TestIDField(t *testing.T) {
	doc := &fieldsTestDocument{}
	setID(doc)

	assert.Equal(t, doc.ID, IDField(doc))
	assert.Nil(t, IDField(&struct{}{}))
}
