package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/infra/metrics"
)

// Collection names kept identical to the original deployment so existing
// databases keep working.
const (
	collChats    = "CHATS"
	collUsers    = "USERS"
	collLanguage = "LANGUAGE"
	collNotes    = "NOTES"
	collRules    = "RULES"
	collWelcome  = "WELCOME"
	collFeds     = "FEDERATIONS"
	collGban     = "GBAN_SETTINGS"
	collStaff    = "STAFF"
	collSession  = "SESSION"
)

// Client wraps the Mongo connection and owns index creation.
type Client struct {
	cli *mongo.Client
	db  *mongo.Database
	log *zerolog.Logger
}

func NewClient(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	c := &Client{cli: cli, db: cli.Database(cfg.Name), log: logger}
	if err := c.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx, nil) }

func (c *Client) Close(ctx context.Context) error { return c.cli.Disconnect(ctx) }

func (c *Client) Database() *mongo.Database { return c.db }

func (c *Client) createIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chats", Value: 1}}},
		{Keys: bson.D{{Key: "username", Value: 1}}},
	}
	if _, err := c.db.Collection(collUsers).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	chatKeyed := []string{collChats, collLanguage, collNotes, collRules, collWelcome, collGban}
	for _, name := range chatKeyed {
		_, err := c.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("%s index: %w", name, err)
		}
	}

	fedIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chats", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	}
	if _, err := c.db.Collection(collFeds).Indexes().CreateMany(ctx, fedIndexes); err != nil {
		return fmt.Errorf("federation indexes: %w", err)
	}
	return nil
}

// observe returns a closure recording operation latency; call it when the
// operation finishes.
func observe(collection, op string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveMongoOp(collection, op, time.Since(start).Milliseconds())
	}
}
