package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/derror"
)

// Chat is the tracked-group document.
type Chat struct {
	ChatID   int64   `bson:"chat_id"`
	ChatName string  `bson:"chat_name"`
	Members  []int64 `bson:"member,omitempty"`
	// Reporting is a tri-state toggle; unset means enabled.
	Reporting *bool `bson:"reporting,omitempty"`
}

// ReportingEnabled reports whether /report pings admins in this chat.
func (c *Chat) ReportingEnabled() bool {
	return c.Reporting == nil || *c.Reporting
}

// ChatRepository tracks every group the bot is a member of.
type ChatRepository interface {
	TouchMember(ctx context.Context, chatID int64, chatName string, userID int64) error
	RemoveMember(ctx context.Context, chatID, userID int64) error
	Delete(ctx context.Context, chatID int64) error
	SetReporting(ctx context.Context, chatID int64, enabled bool) error
	Get(ctx context.Context, chatID int64) (*Chat, error)
	List(ctx context.Context, limit, offset int64) ([]*Chat, error)
	AllIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	Migrate(ctx context.Context, oldID, newID int64) error
}

var _ ChatRepository = (*chatRepo)(nil)

type chatRepo struct {
	coll *mongo.Collection
}

func NewChatRepo(c *Client) *chatRepo {
	return &chatRepo{coll: c.db.Collection(collChats)}
}

func (r *chatRepo) TouchMember(ctx context.Context, chatID int64, chatName string, userID int64) error {
	defer observe(collChats, "touch_member")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{
			"$set":      bson.M{"chat_name": chatName},
			"$addToSet": bson.M{"member": userID},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *chatRepo) RemoveMember(ctx context.Context, chatID, userID int64) error {
	defer observe(collChats, "remove_member")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$pull": bson.M{"member": userID}},
	)
	return err
}

func (r *chatRepo) Delete(ctx context.Context, chatID int64) error {
	defer observe(collChats, "delete")()
	_, err := r.coll.DeleteOne(ctx, bson.M{"chat_id": chatID})
	return err
}

func (r *chatRepo) SetReporting(ctx context.Context, chatID int64, enabled bool) error {
	defer observe(collChats, "set_reporting")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"reporting": enabled}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *chatRepo) Get(ctx context.Context, chatID int64) (*Chat, error) {
	defer observe(collChats, "get")()
	var chat Chat
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat %d: %w", chatID, err)
	}
	return &chat, nil
}

func (r *chatRepo) List(ctx context.Context, limit, offset int64) ([]*Chat, error) {
	defer observe(collChats, "list")()
	opts := options.Find().SetSort(bson.D{{Key: "chat_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []*Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepo) AllIDs(ctx context.Context) ([]int64, error) {
	defer observe(collChats, "all_ids")()
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"chat_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []int64
	for cursor.Next(ctx) {
		var doc struct {
			ChatID int64 `bson:"chat_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ChatID)
	}
	return ids, cursor.Err()
}

func (r *chatRepo) Count(ctx context.Context) (int64, error) {
	defer observe(collChats, "count")()
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *chatRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	defer observe(collChats, "migrate")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": oldID},
		bson.M{"$set": bson.M{"chat_id": newID}},
	)
	return err
}
