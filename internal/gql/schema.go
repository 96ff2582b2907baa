// Package gql exposes the posts service over GraphQL: queries and mutations
// over HTTP, plus a live postAdded subscription bridged from the event bus.
// The schema is declared explicitly, field by field, with hand-written
// resolvers; nothing is discovered through reflection.
package gql

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"github.com/postline/postline/internal/posts"
	"github.com/postline/postline/internal/pubsub"
)

// Config carries the explicit dependencies of the schema. The bus and service
// are owned by the composition root and injected here.
type Config struct {
	Posts  *posts.Service
	Bus    pubsub.Bus
	Logger *logrus.Entry
}

type resolver struct {
	posts  *posts.Service
	bus    pubsub.Bus
	logger *logrus.Entry
}

// NewSchema builds the executable schema.
func NewSchema(cfg Config) (graphql.Schema, error) {
	r := &resolver{
		posts:  cfg.Posts,
		bus:    cfg.Bus,
		logger: cfg.Logger.WithField("component", "gql"),
	}

	postType := newPostType()

	createPostInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreatePostInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"body":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	updatePostInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UpdatePostInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"body":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"posts": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(postType)),
				Description: "Pages through posts, newest first.",
				Args: graphql.FieldConfigArgument{
					"page":  &graphql.ArgumentConfig{Type: graphql.Int},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.listPosts,
			},
			"post": &graphql.Field{
				Type:        postType,
				Description: "Looks up a single post; null when it does not exist.",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.getPost,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createPost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"createPostInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createPostInput)},
				},
				Resolve: r.createPost,
			},
			"updatePost": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"id":              &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"updatePostInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updatePostInput)},
				},
				Resolve: r.updatePost,
			},
			"deletePost": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.deletePost,
			},
		},
	})

	subscription := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"postAdded": &graphql.Field{
				Type:        graphql.NewNonNull(postType),
				Description: "Streams every post created after the subscription is registered.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
				Subscribe: r.subscribePostAdded,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        query,
		Mutation:     mutation,
		Subscription: subscription,
	})
}

// newPostType maps the Post record onto the transport schema field by field.
func newPostType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: resolvePostField(func(post *posts.Post) (interface{}, error) {
					return post.ID.Hex(), nil
				}),
			},
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: resolvePostField(func(post *posts.Post) (interface{}, error) {
					return post.Title, nil
				}),
			},
			"body": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: resolvePostField(func(post *posts.Post) (interface{}, error) {
					return post.Body, nil
				}),
			},
			"createdAt": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: resolvePostField(func(post *posts.Post) (interface{}, error) {
					return post.CreatedAt, nil
				}),
			},
			"updatedAt": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: resolvePostField(func(post *posts.Post) (interface{}, error) {
					return post.UpdatedAt, nil
				}),
			},
		},
	})
}

func resolvePostField(fn func(*posts.Post) (interface{}, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		switch src := p.Source.(type) {
		case *posts.Post:
			return fn(src)
		case posts.Post:
			return fn(&src)
		}
		return nil, fmt.Errorf("unexpected source type %T", p.Source)
	}
}

func (r *resolver) listPosts(p graphql.ResolveParams) (interface{}, error) {
	out, err := r.posts.List(p.Context, argInt(p.Args, "page"), argInt(p.Args, "limit"))
	if err != nil {
		return nil, r.mapError(err)
	}
	return out, nil
}

func (r *resolver) getPost(p graphql.ResolveParams) (interface{}, error) {
	post, err := r.posts.Get(p.Context, p.Args["id"].(string))
	if err != nil {
		return nil, r.mapError(err)
	}
	if post == nil {
		return nil, nil
	}
	return post, nil
}

// createPost is the mutation entry point: validate, persist, then notify.
// The publish rides on a successful write and carries the persisted record;
// its failure degrades the live feed but never the mutation itself.
func (r *resolver) createPost(p graphql.ResolveParams) (interface{}, error) {
	input := p.Args["createPostInput"].(map[string]interface{})

	post, err := r.posts.Create(p.Context, argString(input, "title"), argString(input, "body"))
	if err != nil {
		return nil, r.mapError(err)
	}

	if err := r.bus.Publish(p.Context, posts.TopicPostAdded, post); err != nil {
		r.logger.Warnf("post %s created but notification failed: %v", post.ID.Hex(), err)
	}

	return post, nil
}

func (r *resolver) updatePost(p graphql.ResolveParams) (interface{}, error) {
	input := p.Args["updatePostInput"].(map[string]interface{})

	var patch posts.UpdatePost
	if v, ok := input["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := input["body"].(string); ok {
		patch.Body = &v
	}

	post, err := r.posts.Update(p.Context, p.Args["id"].(string), patch)
	if err != nil {
		return nil, r.mapError(err)
	}
	if post == nil {
		return nil, NotFound(nil)
	}
	return post, nil
}

func (r *resolver) deletePost(p graphql.ResolveParams) (interface{}, error) {
	ok, err := r.posts.Delete(p.Context, p.Args["id"].(string))
	if err != nil {
		return nil, r.mapError(err)
	}
	return ok, nil
}

// subscribePostAdded bridges one bus subscription onto the executor's source
// channel. Teardown runs exactly once no matter how the consumer stops:
// context cancellation, bus shutdown, or the client going away mid-forward.
func (r *resolver) subscribePostAdded(p graphql.ResolveParams) (interface{}, error) {
	sub, err := r.bus.Subscribe(p.Context, posts.TopicPostAdded)
	if err != nil {
		return nil, BadGateway(err)
	}

	out := make(chan interface{})

	go func() {
		defer close(out)
		defer sub.Cancel()

		for {
			select {
			case <-p.Context.Done():
				return
			case evt, ok := <-sub.Events():
				if !ok {
					return
				}

				var post posts.Post
				if err := json.Unmarshal(evt.Payload, &post); err != nil {
					r.logger.Warnf("discarding undecodable %s event: %v", evt.Topic, err)
					continue
				}

				select {
				case out <- &post:
				case <-p.Context.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// mapError translates service errors into the transport taxonomy. Expected
// outcomes (absent records, false deletes) never reach here; they are plain
// result values.
func (r *resolver) mapError(err error) error {
	var vErr *posts.ValidationError

	switch {
	case errors.As(err, &vErr):
		return BadUserInput(vErr.Error(), err).WithMeta("field", vErr.Field)
	case errors.Is(err, posts.ErrInvalidID):
		return BadUserInput(err.Error(), err)
	}

	r.logger.Errorf("request failed: %v", err)
	return InternalServerError(err)
}

func argInt(args map[string]interface{}, name string) int {
	if v, ok := args[name].(int); ok {
		return v
	}
	return 0
}

func argString(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}
