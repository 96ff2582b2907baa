package mongodb

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gertd/go-pluralize"
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")

	ErrUnsupportedDataType = errors.New("mongodb: unsupported data type")

	pluralizer = pluralize.NewClient()
)

// CollectionNamer overrides the convention-derived collection name.
type CollectionNamer interface {
	CollectionName() string
}

// collectionName derives the collection for doc: the CollectionName method if
// present, otherwise the pluralized snake_case type name.
func collectionName(doc interface{}) (string, error) {
	t, err := resolveToType(doc)
	if err != nil {
		return "", err
	}

	if namer, ok := reflect.New(t).Interface().(CollectionNamer); ok {
		return namer.CollectionName(), nil
	}

	return pluralizer.Pluralize(snakeCase(t.Name()), 2, false), nil
}

func snakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// resolveToType unwraps pointers and slices down to the element struct type.
func resolveToType(doc interface{}) (reflect.Type, error) {
	t := reflect.TypeOf(doc)
	if t == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedDataType)
	}

	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, t.String())
	}
	return t, nil
}
