package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/util"
)

// WelcomeSettings is the per-chat greeting configuration. Welcome defaults to
// on for chats with no document; goodbye defaults to off.
type WelcomeSettings struct {
	ChatID        int64         `bson:"chat_id"`
	ShouldWelcome *bool         `bson:"should_welcome,omitempty"`
	ShouldGoodbye *bool         `bson:"should_goodbye,omitempty"`
	CleanService  bool          `bson:"clean_service,omitempty"`
	CustomWelcome string        `bson:"custom_welcome,omitempty"`
	CustomGoodbye string        `bson:"custom_goodbye,omitempty"`
	Buttons       []util.Button `bson:"button,omitempty"`
	PrevWelcome   int           `bson:"prev_welcome,omitempty"`
	PrevGoodbye   int           `bson:"prev_goodbye,omitempty"`
}

func (w *WelcomeSettings) WelcomeEnabled() bool {
	return w.ShouldWelcome == nil || *w.ShouldWelcome
}

func (w *WelcomeSettings) GoodbyeEnabled() bool {
	return w.ShouldGoodbye != nil && *w.ShouldGoodbye
}

type WelcomeRepository interface {
	Get(ctx context.Context, chatID int64) (*WelcomeSettings, error)
	SetWelcome(ctx context.Context, chatID int64, enabled bool) error
	SetGoodbye(ctx context.Context, chatID int64, enabled bool) error
	SetCleanService(ctx context.Context, chatID int64, enabled bool) error
	SetCustomWelcome(ctx context.Context, chatID int64, text string, buttons []util.Button) error
	ResetWelcome(ctx context.Context, chatID int64) error
	// SetPrevWelcome records the last sent greeting id and returns the one it
	// replaced so the caller can delete it.
	SetPrevWelcome(ctx context.Context, chatID int64, messageID int) (int, error)
	SetPrevGoodbye(ctx context.Context, chatID int64, messageID int) (int, error)
	Migrate(ctx context.Context, oldID, newID int64) error
	Export(ctx context.Context, chatID int64) (bson.M, error)
	Import(ctx context.Context, chatID int64, data bson.M) error
}

var _ WelcomeRepository = (*welcomeRepo)(nil)

type welcomeRepo struct {
	coll *mongo.Collection
}

func NewWelcomeRepo(c *Client) *welcomeRepo {
	return &welcomeRepo{coll: c.db.Collection(collWelcome)}
}

func (r *welcomeRepo) Get(ctx context.Context, chatID int64) (*WelcomeSettings, error) {
	defer observe(collWelcome, "get")()
	var s WelcomeSettings
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &WelcomeSettings{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *welcomeRepo) setField(ctx context.Context, chatID int64, field string, value any) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *welcomeRepo) SetWelcome(ctx context.Context, chatID int64, enabled bool) error {
	defer observe(collWelcome, "set_welcome")()
	return r.setField(ctx, chatID, "should_welcome", enabled)
}

func (r *welcomeRepo) SetGoodbye(ctx context.Context, chatID int64, enabled bool) error {
	defer observe(collWelcome, "set_goodbye")()
	return r.setField(ctx, chatID, "should_goodbye", enabled)
}

func (r *welcomeRepo) SetCleanService(ctx context.Context, chatID int64, enabled bool) error {
	defer observe(collWelcome, "set_clean_service")()
	return r.setField(ctx, chatID, "clean_service", enabled)
}

func (r *welcomeRepo) SetCustomWelcome(ctx context.Context, chatID int64, text string, buttons []util.Button) error {
	defer observe(collWelcome, "set_custom_welcome")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"custom_welcome": text, "button": buttons}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *welcomeRepo) ResetWelcome(ctx context.Context, chatID int64) error {
	defer observe(collWelcome, "reset_welcome")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$unset": bson.M{"custom_welcome": "", "button": ""}},
	)
	return err
}

func (r *welcomeRepo) SetPrevWelcome(ctx context.Context, chatID int64, messageID int) (int, error) {
	defer observe(collWelcome, "set_prev_welcome")()
	return r.swapPrev(ctx, chatID, "prev_welcome", messageID)
}

func (r *welcomeRepo) SetPrevGoodbye(ctx context.Context, chatID int64, messageID int) (int, error) {
	defer observe(collWelcome, "set_prev_goodbye")()
	return r.swapPrev(ctx, chatID, "prev_goodbye", messageID)
}

func (r *welcomeRepo) swapPrev(ctx context.Context, chatID int64, field string, messageID int) (int, error) {
	var before bson.M
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{field: messageID}},
		options.FindOneAndUpdate().SetUpsert(true),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return prevMessageID(before[field]), nil
}

// prevMessageID normalizes a stored message id. Backup imports can leave the
// field behind as any BSON numeric type.
func prevMessageID(v any) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func (r *welcomeRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	return migrateChatID(ctx, r.coll, collWelcome, oldID, newID)
}

func (r *welcomeRepo) Export(ctx context.Context, chatID int64) (bson.M, error) {
	return exportChatDoc(ctx, r.coll, collWelcome, chatID)
}

func (r *welcomeRepo) Import(ctx context.Context, chatID int64, data bson.M) error {
	return importChatDoc(ctx, r.coll, collWelcome, chatID, data)
}
