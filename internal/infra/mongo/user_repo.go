package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/derror"
)

// User is the tracked-user document. Reputation is only maintained when the
// spam-prediction extra is loaded.
type User struct {
	ID         int64   `bson:"_id"`
	Username   string  `bson:"username,omitempty"`
	Chats      []int64 `bson:"chats,omitempty"`
	Reputation int     `bson:"reputation,omitempty"`
}

type UserRepository interface {
	Track(ctx context.Context, userID int64, username string, chatID int64) error
	TrackPrivate(ctx context.Context, userID int64, username string) error
	Get(ctx context.Context, userID int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	InChat(ctx context.Context, chatID int64) ([]User, error)
	RemoveChat(ctx context.Context, userID, chatID int64) error
	PullChatFromAll(ctx context.Context, chatID int64) error
	AdjustReputation(ctx context.Context, userID int64, delta int) error
	Count(ctx context.Context) (int64, error)
	Migrate(ctx context.Context, oldID, newID int64) error
}

var _ UserRepository = (*userRepo)(nil)

type userRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(c *Client) *userRepo {
	return &userRepo{coll: c.db.Collection(collUsers)}
}

func (r *userRepo) Track(ctx context.Context, userID int64, username string, chatID int64) error {
	defer observe(collUsers, "track")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set":         bson.M{"username": username},
			"$setOnInsert": bson.M{"reputation": 0},
			"$addToSet":    bson.M{"chats": chatID},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *userRepo) TrackPrivate(ctx context.Context, userID int64, username string) error {
	defer observe(collUsers, "track_private")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"username": username}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *userRepo) Get(ctx context.Context, userID int64) (*User, error) {
	defer observe(collUsers, "get")()
	var user User
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	defer observe(collUsers, "get_by_username")()
	var user User
	err := r.coll.FindOne(ctx, bson.M{"username": strings.TrimPrefix(username, "@")}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &user, nil
}

// InChat lists every tracked member of a chat.
func (r *userRepo) InChat(ctx context.Context, chatID int64) ([]User, error) {
	defer observe(collUsers, "in_chat")()
	cur, err := r.coll.Find(ctx, bson.M{"chats": chatID})
	if err != nil {
		return nil, fmt.Errorf("find members of %d: %w", chatID, err)
	}
	defer cur.Close(ctx)

	var users []User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) RemoveChat(ctx context.Context, userID, chatID int64) error {
	defer observe(collUsers, "remove_chat")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"chats": chatID}},
	)
	return err
}

func (r *userRepo) PullChatFromAll(ctx context.Context, chatID int64) error {
	defer observe(collUsers, "pull_chat_all")()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"chats": chatID},
		bson.M{"$pull": bson.M{"chats": chatID}},
	)
	return err
}

func (r *userRepo) AdjustReputation(ctx context.Context, userID int64, delta int) error {
	defer observe(collUsers, "adjust_reputation")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"reputation": delta}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	defer observe(collUsers, "count")()
	return r.coll.CountDocuments(ctx, bson.M{})
}

// Migrate re-keys chat membership after a group upgrades to a supergroup.
func (r *userRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	defer observe(collUsers, "migrate")()
	if _, err := r.coll.UpdateMany(ctx,
		bson.M{"chats": oldID},
		bson.M{"$push": bson.M{"chats": newID}},
	); err != nil {
		return err
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"chats": oldID},
		bson.M{"$pull": bson.M{"chats": oldID}},
	)
	return err
}
