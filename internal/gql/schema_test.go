package gql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/postline/postline/internal/posts"
	"github.com/postline/postline/internal/pubsub"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestSchema(t *testing.T) (graphql.Schema, *posts.Service, *pubsub.MemoryBus) {
	t.Helper()

	svc := posts.NewService(posts.NewMemoryStore())
	bus := pubsub.NewMemoryBus(testLogger())

	schema, err := NewSchema(Config{Posts: svc, Bus: bus, Logger: testLogger()})
	require.NoError(t, err)

	return schema, svc, bus
}

func execute(t *testing.T, schema graphql.Schema, query string) *graphql.Result {
	t.Helper()

	return graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       context.Background(),
	})
}

func data(t *testing.T, res *graphql.Result, field string) map[string]interface{} {
	t.Helper()

	require.Empty(t, res.Errors)
	root, ok := res.Data.(map[string]interface{})
	require.True(t, ok)

	out, ok := root[field].(map[string]interface{})
	require.True(t, ok, "field %s missing or not an object", field)
	return out
}

func TestCreatePostMutation(t *testing.T) {
	t.Run("it should persist and echo the record", func(t *testing.T) {
		schema, _, _ := newTestSchema(t)

		res := execute(t, schema, `mutation { createPost(createPostInput: {title: "T", body: "B"}) { id title body createdAt updatedAt } }`)
		created := data(t, res, "createPost")

		assert.Equal(t, "T", created["title"])
		assert.Equal(t, "B", created["body"])
		assert.NotEmpty(t, created["id"])
	})

	t.Run("it should reject a blank title with BAD_USER_INPUT", func(t *testing.T) {
		schema, svc, _ := newTestSchema(t)

		res := execute(t, schema, `mutation { createPost(createPostInput: {title: "", body: "B"}) { id } }`)
		require.NotEmpty(t, res.Errors)

		assert.Contains(t, res.Errors[0].Message, "title cannot be blank")
		assert.Equal(t, CodeBadUserInput, res.Errors[0].Extensions["code"])
		assert.Equal(t, "title", res.Errors[0].Extensions["field"])

		// Nothing persisted.
		all, err := svc.List(context.Background(), 0, 0)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("it should succeed even when the notification cannot be published", func(t *testing.T) {
		svc := posts.NewService(posts.NewMemoryStore())

		schema, err := NewSchema(Config{Posts: svc, Bus: failingBus{}, Logger: testLogger()})
		require.NoError(t, err)

		res := execute(t, schema, `mutation { createPost(createPostInput: {title: "T", body: "B"}) { id } }`)
		created := data(t, res, "createPost")
		assert.NotEmpty(t, created["id"])

		all, err := svc.List(context.Background(), 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestPostsQuery(t *testing.T) {
	t.Run("it should page newest first", func(t *testing.T) {
		schema, svc, _ := newTestSchema(t)

		ctx := context.Background()
		for i := 0; i < 5; i++ {
			_, err := svc.Create(ctx, fmt.Sprintf("post-%d", i), "body")
			require.NoError(t, err)
		}

		res := execute(t, schema, `{ posts(page: 2, limit: 2) { title } }`)
		require.Empty(t, res.Errors)

		list := res.Data.(map[string]interface{})["posts"].([]interface{})
		require.Len(t, list, 2)

		assert.Equal(t, "post-2", list[0].(map[string]interface{})["title"])
		assert.Equal(t, "post-1", list[1].(map[string]interface{})["title"])
	})
}

func TestPostQuery(t *testing.T) {
	t.Run("it should return null for an unknown id", func(t *testing.T) {
		schema, _, _ := newTestSchema(t)

		res := execute(t, schema, fmt.Sprintf(`{ post(id: %q) { id } }`, primitive.NewObjectID().Hex()))
		require.Empty(t, res.Errors)
		assert.Nil(t, res.Data.(map[string]interface{})["post"])
	})

	t.Run("it should reject a malformed id", func(t *testing.T) {
		schema, _, _ := newTestSchema(t)

		res := execute(t, schema, `{ post(id: "nope") { id } }`)
		require.NotEmpty(t, res.Errors)
		assert.Equal(t, CodeBadUserInput, res.Errors[0].Extensions["code"])
	})
}

func TestUpdatePostMutation(t *testing.T) {
	t.Run("it should surface NOT_FOUND for a missing id", func(t *testing.T) {
		schema, _, _ := newTestSchema(t)

		res := execute(t, schema, fmt.Sprintf(
			`mutation { updatePost(id: %q, updatePostInput: {title: "x"}) { id } }`,
			primitive.NewObjectID().Hex()))

		require.NotEmpty(t, res.Errors)
		assert.Equal(t, CodeNotFound, res.Errors[0].Extensions["code"])
	})

	t.Run("it should apply a partial patch", func(t *testing.T) {
		schema, svc, _ := newTestSchema(t)

		post, err := svc.Create(context.Background(), "before", "body")
		require.NoError(t, err)

		res := execute(t, schema, fmt.Sprintf(
			`mutation { updatePost(id: %q, updatePostInput: {title: "after"}) { title body } }`,
			post.ID.Hex()))
		updated := data(t, res, "updatePost")

		assert.Equal(t, "after", updated["title"])
		assert.Equal(t, "body", updated["body"])
	})
}

func TestDeletePostMutation(t *testing.T) {
	t.Run("it should report true then false", func(t *testing.T) {
		schema, svc, _ := newTestSchema(t)

		post, err := svc.Create(context.Background(), "T", "B")
		require.NoError(t, err)

		res := execute(t, schema, fmt.Sprintf(`mutation { deletePost(id: %q) }`, post.ID.Hex()))
		require.Empty(t, res.Errors)
		assert.Equal(t, true, res.Data.(map[string]interface{})["deletePost"])

		res = execute(t, schema, fmt.Sprintf(`mutation { deletePost(id: %q) }`, post.ID.Hex()))
		require.Empty(t, res.Errors)
		assert.Equal(t, false, res.Data.(map[string]interface{})["deletePost"])
	})
}

const postAddedQuery = `subscription { postAdded { id title body } }`

func subscribePostAdded(t *testing.T, schema graphql.Schema, bus *pubsub.MemoryBus, want int) (chan *graphql.Result, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	results := graphql.Subscribe(graphql.Params{
		Schema:        schema,
		RequestString: postAddedQuery,
		Context:       ctx,
	})

	require.Eventually(t, func() bool {
		return bus.Subscribers(posts.TopicPostAdded) == want
	}, time.Second, 5*time.Millisecond, "subscription never registered on the bus")

	return results, cancel
}

func nextResult(t *testing.T, results chan *graphql.Result) *graphql.Result {
	t.Helper()

	select {
	case res, ok := <-results:
		require.True(t, ok, "subscription closed unexpectedly")
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscription result")
		return nil
	}
}

func TestPostAddedSubscription(t *testing.T) {
	t.Run("it should deliver the created post to a live subscriber", func(t *testing.T) {
		schema, _, bus := newTestSchema(t)

		results, cancel := subscribePostAdded(t, schema, bus, 1)
		defer cancel()

		execute(t, schema, `mutation { createPost(createPostInput: {title: "T", body: "B"}) { id } }`)

		res := nextResult(t, results)
		payload := data(t, res, "postAdded")

		assert.Equal(t, "T", payload["title"])
		assert.Equal(t, "B", payload["body"])
		assert.NotEmpty(t, payload["id"])
	})

	t.Run("it should deliver to both subscribers and survive one cancelling", func(t *testing.T) {
		schema, _, bus := newTestSchema(t)

		resultsA, cancelA := subscribePostAdded(t, schema, bus, 1)
		resultsB, cancelB := subscribePostAdded(t, schema, bus, 2)
		defer cancelB()

		execute(t, schema, `mutation { createPost(createPostInput: {title: "first", body: "B"}) { id } }`)

		assert.Equal(t, "first", data(t, nextResult(t, resultsA), "postAdded")["title"])
		assert.Equal(t, "first", data(t, nextResult(t, resultsB), "postAdded")["title"])

		cancelA()
		require.Eventually(t, func() bool {
			return bus.Subscribers(posts.TopicPostAdded) == 1
		}, time.Second, 5*time.Millisecond)

		execute(t, schema, `mutation { createPost(createPostInput: {title: "second", body: "B"}) { id } }`)
		assert.Equal(t, "second", data(t, nextResult(t, resultsB), "postAdded")["title"])
	})

	t.Run("it should be a no-op with zero subscribers", func(t *testing.T) {
		schema, _, bus := newTestSchema(t)

		res := execute(t, schema, `mutation { createPost(createPostInput: {title: "T", body: "B"}) { id } }`)
		require.Empty(t, res.Errors)
		assert.Equal(t, 0, bus.Subscribers(posts.TopicPostAdded))
	})

	t.Run("it should fail the subscription when the broker is down", func(t *testing.T) {
		svc := posts.NewService(posts.NewMemoryStore())

		schema, err := NewSchema(Config{Posts: svc, Bus: failingBus{}, Logger: testLogger()})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results := graphql.Subscribe(graphql.Params{
			Schema:        schema,
			RequestString: postAddedQuery,
			Context:       ctx,
		})

		res := nextResult(t, results)
		require.NotEmpty(t, res.Errors)
	})
}

// failingBus simulates an unreachable broker.
type failingBus struct{}

func (failingBus) Publish(context.Context, string, interface{}) error {
	return fmt.Errorf("broker unreachable")
}

func (failingBus) Subscribe(context.Context, string) (*pubsub.Subscription, error) {
	return nil, fmt.Errorf("broker unreachable")
}
