package posts

import (
	"errors"
	"fmt"
)

// ErrInvalidID reports a lookup with a malformed id. A well-formed id that
// matches nothing is not an error; those operations return absent instead.
var ErrInvalidID = errors.New("posts: invalid post id")

// ValidationError rejects a write before anything reaches the store.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("posts: %s cannot be blank", e.Field)
}
