package mongodb

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// setID assigns a fresh id to doc's ID field when it is still zero. ObjectID
// and uuid.UUID keys are supported.
func setID(doc interface{}) {
	v := valueOf(doc).FieldByName("ID")
	if !v.IsValid() || !v.CanSet() {
		return
	}

	switch id := v.Interface().(type) {
	case primitive.ObjectID:
		if id.IsZero() {
			v.Set(reflect.ValueOf(primitive.NewObjectID()))
		}
	case uuid.UUID:
		if id == uuid.Nil {
			v.Set(reflect.ValueOf(uuid.New()))
		}
	}
}

// timestamps stamps CreatedAt once and refreshes UpdatedAt on every write.
func timestamps(doc interface{}, t time.Time) {
	value := valueOf(doc)

	if v := value.FieldByName("CreatedAt"); v.IsValid() && v.CanSet() {
		if cAt, ok := v.Interface().(time.Time); ok && cAt.IsZero() {
			v.Set(reflect.ValueOf(t))
		}
	}

	if v := value.FieldByName("UpdatedAt"); v.IsValid() && v.CanSet() {
		if _, ok := v.Interface().(time.Time); ok {
			v.Set(reflect.ValueOf(t))
		}
	}
}

// IDField returns the current id value of doc, or nil when it has none.
func IDField(doc interface{}) interface{} {
	if v := valueOf(doc).FieldByName("ID"); v.IsValid() {
		return v.Interface()
	}
	return nil
}

func valueOf(doc interface{}) reflect.Value {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	return value
}
