package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var ErrNotConnected = errors.New("mongodb: client not connected")

// Config carries the connection settings for the process-wide client.
type Config struct {
	URL      string
	Database string
	User     string
	Pass     string
}

// Client wraps the shared driver client and database handle. One Client is
// acquired at startup and released at shutdown; every Collection multiplexes
// over it.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *logrus.Entry
}

func Connect(ctx context.Context, cfg Config, logger *logrus.Entry) (*Client, error) {
	opts := options.Client().ApplyURI(cfg.URL)

	if cfg.User != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.User,
			Password: cfg.Pass,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger.WithField("component", "mongodb"),
	}, nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	if c.client == nil {
		return ErrNotConnected
	}
	return c.client.Disconnect(contextWithDeadline(ctx))
}

func (c *Client) Ping(ctx context.Context, timeout ...time.Duration) error {
	if c.client == nil {
		return ErrNotConnected
	}
	return c.client.Ping(contextWithDeadline(ctx, timeout...), readpref.Primary())
}

// Collection resolves the collection for doc by naming convention (or its
// CollectionName method) and binds it to this client.
func (c *Client) Collection(doc interface{}) Collection {
	name, err := collectionName(doc)
	if err != nil {
		panic(err)
	}

	return Collection{
		Name:   name,
		Col:    c.database.Collection(name),
		logger: c.logger.WithField("collection", name),
	}
}

func contextWithDeadline(ctx context.Context, durs ...time.Duration) context.Context {
	duration := 5 * time.Second
	if len(durs) > 0 {
		duration = durs[0]
	}

	if ctx.Err() != nil {
		ctx = context.Background()
	}

	ctx, _ = context.WithDeadline(ctx, time.Now().Add(duration))
	return ctx
}
