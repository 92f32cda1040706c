package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/derror"
)

// FedBan is one banned entry inside a federation document. The map is keyed
// by the banned user's id rendered as a decimal string.
type FedBan struct {
	Name   string    `bson:"name,omitempty"`
	Reason string    `bson:"reason,omitempty"`
	Time   time.Time `bson:"time"`
}

// Federation is a named ban-sharing group of chats.
type Federation struct {
	ID     string            `bson:"_id"`
	Name   string            `bson:"name"`
	Owner  int64             `bson:"owner"`
	Admins []int64           `bson:"admins,omitempty"`
	Chats  []int64           `bson:"chats,omitempty"`
	Banned map[string]FedBan `bson:"banned,omitempty"`
	Log    int64             `bson:"log,omitempty"`
}

// IsAdmin reports whether the user is the owner or a federation admin.
func (f *Federation) IsAdmin(userID int64) bool {
	if userID == f.Owner {
		return true
	}
	for _, id := range f.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// BanOf returns the ban entry for a user, if any.
func (f *Federation) BanOf(userID int64) (*FedBan, bool) {
	ban, ok := f.Banned[strconv.FormatInt(userID, 10)]
	if !ok {
		return nil, false
	}
	return &ban, true
}

type FedRepository interface {
	Create(ctx context.Context, name string, owner int64) (*Federation, error)
	Delete(ctx context.Context, fid string) (*Federation, error)
	Get(ctx context.Context, fid string) (*Federation, error)
	GetByChat(ctx context.Context, chatID int64) (*Federation, error)
	GetByOwner(ctx context.Context, userID int64) (*Federation, error)
	JoinChat(ctx context.Context, fid string, chatID int64) error
	LeaveChat(ctx context.Context, fid string, chatID int64) error
	Promote(ctx context.Context, fid string, userID int64) error
	Demote(ctx context.Context, fid string, userID int64) error
	Ban(ctx context.Context, fid string, userID int64, ban FedBan) error
	Unban(ctx context.Context, fid string, userID int64) error
	BansOf(ctx context.Context, userID int64) ([]*Federation, error)
	SetLog(ctx context.Context, fid string, chatID int64) error
	Migrate(ctx context.Context, oldID, newID int64) error
}

var _ FedRepository = (*fedRepo)(nil)

type fedRepo struct {
	coll *mongo.Collection
}

func NewFedRepo(c *Client) *fedRepo {
	return &fedRepo{coll: c.db.Collection(collFeds)}
}

func (r *fedRepo) Create(ctx context.Context, name string, owner int64) (*Federation, error) {
	defer observe(collFeds, "create")()
	existing, err := r.GetByOwner(ctx, owner)
	if err != nil && !errors.Is(err, derror.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, derror.ErrFedExists
	}

	fed := &Federation{
		ID:    uuid.NewString(),
		Name:  name,
		Owner: owner,
	}
	if _, err := r.coll.InsertOne(ctx, fed); err != nil {
		return nil, fmt.Errorf("insert federation: %w", err)
	}
	return fed, nil
}

func (r *fedRepo) Delete(ctx context.Context, fid string) (*Federation, error) {
	defer observe(collFeds, "delete")()
	var fed Federation
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": fid}).Decode(&fed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fed, nil
}

func (r *fedRepo) findOne(ctx context.Context, filter bson.M) (*Federation, error) {
	var fed Federation
	err := r.coll.FindOne(ctx, filter).Decode(&fed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fed, nil
}

func (r *fedRepo) Get(ctx context.Context, fid string) (*Federation, error) {
	defer observe(collFeds, "get")()
	return r.findOne(ctx, bson.M{"_id": fid})
}

func (r *fedRepo) GetByChat(ctx context.Context, chatID int64) (*Federation, error) {
	defer observe(collFeds, "get_by_chat")()
	return r.findOne(ctx, bson.M{"chats": chatID})
}

func (r *fedRepo) GetByOwner(ctx context.Context, userID int64) (*Federation, error) {
	defer observe(collFeds, "get_by_owner")()
	return r.findOne(ctx, bson.M{"owner": userID})
}

func (r *fedRepo) JoinChat(ctx context.Context, fid string, chatID int64) error {
	defer observe(collFeds, "join_chat")()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$addToSet": bson.M{"chats": chatID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return derror.ErrNotFound
	}
	return nil
}

func (r *fedRepo) LeaveChat(ctx context.Context, fid string, chatID int64) error {
	defer observe(collFeds, "leave_chat")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$pull": bson.M{"chats": chatID}},
	)
	return err
}

func (r *fedRepo) Promote(ctx context.Context, fid string, userID int64) error {
	defer observe(collFeds, "promote")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$addToSet": bson.M{"admins": userID}},
	)
	return err
}

func (r *fedRepo) Demote(ctx context.Context, fid string, userID int64) error {
	defer observe(collFeds, "demote")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$pull": bson.M{"admins": userID}},
	)
	return err
}

func (r *fedRepo) Ban(ctx context.Context, fid string, userID int64, ban FedBan) error {
	defer observe(collFeds, "ban")()
	key := "banned." + strconv.FormatInt(userID, 10)
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$set": bson.M{key: ban}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *fedRepo) Unban(ctx context.Context, fid string, userID int64) error {
	defer observe(collFeds, "unban")()
	key := "banned." + strconv.FormatInt(userID, 10)
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$unset": bson.M{key: ""}},
	)
	return err
}

func (r *fedRepo) BansOf(ctx context.Context, userID int64) ([]*Federation, error) {
	defer observe(collFeds, "bans_of")()
	key := "banned." + strconv.FormatInt(userID, 10)
	cursor, err := r.coll.Find(ctx, bson.M{key: bson.M{"$exists": true}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var feds []*Federation
	if err := cursor.All(ctx, &feds); err != nil {
		return nil, err
	}
	return feds, nil
}

func (r *fedRepo) SetLog(ctx context.Context, fid string, chatID int64) error {
	defer observe(collFeds, "set_log")()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": fid},
		bson.M{"$set": bson.M{"log": chatID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return derror.ErrNotFound
	}
	return nil
}

func (r *fedRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	defer observe(collFeds, "migrate")()
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
