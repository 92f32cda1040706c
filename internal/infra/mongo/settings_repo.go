package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/derror"
)

// LanguageRepository stores the per-chat language choice.
type LanguageRepository interface {
	All(ctx context.Context) (map[int64]string, error)
	Set(ctx context.Context, chatID int64, lang string) error
	Migrate(ctx context.Context, oldID, newID int64) error
	Export(ctx context.Context, chatID int64) (bson.M, error)
	Import(ctx context.Context, chatID int64, data bson.M) error
}

var _ LanguageRepository = (*languageRepo)(nil)

type languageRepo struct {
	coll *mongo.Collection
}

func NewLanguageRepo(c *Client) *languageRepo {
	return &languageRepo{coll: c.db.Collection(collLanguage)}
}

func (r *languageRepo) All(ctx context.Context) (map[int64]string, error) {
	defer observe(collLanguage, "all")()
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	langs := make(map[int64]string)
	for cursor.Next(ctx) {
		var doc struct {
			ChatID   int64  `bson:"chat_id"`
			Language string `bson:"language"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		langs[doc.ChatID] = doc.Language
	}
	return langs, cursor.Err()
}

func (r *languageRepo) Set(ctx context.Context, chatID int64, lang string) error {
	defer observe(collLanguage, "set")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"language": lang}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *languageRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	return migrateChatID(ctx, r.coll, collLanguage, oldID, newID)
}

func (r *languageRepo) Export(ctx context.Context, chatID int64) (bson.M, error) {
	return exportChatDoc(ctx, r.coll, collLanguage, chatID)
}

func (r *languageRepo) Import(ctx context.Context, chatID int64, data bson.M) error {
	return importChatDoc(ctx, r.coll, collLanguage, chatID, data)
}

// RulesRepository stores the chat rules text.
type RulesRepository interface {
	Get(ctx context.Context, chatID int64) (string, error)
	Set(ctx context.Context, chatID int64, rules string) error
	Clear(ctx context.Context, chatID int64) error
	Migrate(ctx context.Context, oldID, newID int64) error
	Export(ctx context.Context, chatID int64) (bson.M, error)
	Import(ctx context.Context, chatID int64, data bson.M) error
}

var _ RulesRepository = (*rulesRepo)(nil)

type rulesRepo struct {
	coll *mongo.Collection
}

func NewRulesRepo(c *Client) *rulesRepo {
	return &rulesRepo{coll: c.db.Collection(collRules)}
}

func (r *rulesRepo) Get(ctx context.Context, chatID int64) (string, error) {
	defer observe(collRules, "get")()
	var doc struct {
		Rules string `bson:"rules"`
	}
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", derror.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Rules, nil
}

func (r *rulesRepo) Set(ctx context.Context, chatID int64, rules string) error {
	defer observe(collRules, "set")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"rules": rules}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *rulesRepo) Clear(ctx context.Context, chatID int64) error {
	defer observe(collRules, "clear")()
	_, err := r.coll.DeleteOne(ctx, bson.M{"chat_id": chatID})
	return err
}

func (r *rulesRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	return migrateChatID(ctx, r.coll, collRules, oldID, newID)
}

func (r *rulesRepo) Export(ctx context.Context, chatID int64) (bson.M, error) {
	return exportChatDoc(ctx, r.coll, collRules, chatID)
}

func (r *rulesRepo) Import(ctx context.Context, chatID int64, data bson.M) error {
	return importChatDoc(ctx, r.coll, collRules, chatID, data)
}

// GbanSettingRepository stores the per-chat SpamShield toggle.
type GbanSettingRepository interface {
	IsActive(ctx context.Context, chatID int64) (bool, error)
	Set(ctx context.Context, chatID int64, active bool) error
	Migrate(ctx context.Context, oldID, newID int64) error
	Export(ctx context.Context, chatID int64) (bson.M, error)
	Import(ctx context.Context, chatID int64, data bson.M) error
}

var _ GbanSettingRepository = (*gbanRepo)(nil)

type gbanRepo struct {
	coll *mongo.Collection
}

func NewGbanSettingRepo(c *Client) *gbanRepo {
	return &gbanRepo{coll: c.db.Collection(collGban)}
}

func (r *gbanRepo) IsActive(ctx context.Context, chatID int64) (bool, error) {
	defer observe(collGban, "is_active")()
	var doc struct {
		Setting bool `bson:"setting"`
	}
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.Setting, nil
}

func (r *gbanRepo) Set(ctx context.Context, chatID int64, active bool) error {
	defer observe(collGban, "set")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"setting": active}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *gbanRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	return migrateChatID(ctx, r.coll, collGban, oldID, newID)
}

func (r *gbanRepo) Export(ctx context.Context, chatID int64) (bson.M, error) {
	return exportChatDoc(ctx, r.coll, collGban, chatID)
}

func (r *gbanRepo) Import(ctx context.Context, chatID int64, data bson.M) error {
	return importChatDoc(ctx, r.coll, collGban, chatID, data)
}

// StaffRepository stores bot staff user ids beyond the configured owner.
type StaffRepository interface {
	All(ctx context.Context) ([]int64, error)
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
}

var _ StaffRepository = (*staffRepo)(nil)

type staffRepo struct {
	coll *mongo.Collection
}

func NewStaffRepo(c *Client) *staffRepo {
	return &staffRepo{coll: c.db.Collection(collStaff)}
}

func (r *staffRepo) All(ctx context.Context) ([]int64, error) {
	defer observe(collStaff, "all")()
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []int64
	for cursor.Next(ctx) {
		var doc struct {
			ID int64 `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

func (r *staffRepo) Add(ctx context.Context, userID int64) error {
	defer observe(collStaff, "add")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"_id": userID}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *staffRepo) Remove(ctx context.Context, userID int64) error {
	defer observe(collStaff, "remove")()
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// SessionRepository persists runtime checkpoints between restarts.
type SessionRepository interface {
	SaveCheckpoint(ctx context.Context, data bson.M) error
	LoadCheckpoint(ctx context.Context) (bson.M, error)
}

var _ SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct {
	coll *mongo.Collection
}

func NewSessionRepo(c *Client) *sessionRepo {
	return &sessionRepo{coll: c.db.Collection(collSession)}
}

func (r *sessionRepo) SaveCheckpoint(ctx context.Context, data bson.M) error {
	defer observe(collSession, "save")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": 2},
		bson.M{"$set": bson.M{"data": data, "saved_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *sessionRepo) LoadCheckpoint(ctx context.Context) (bson.M, error) {
	defer observe(collSession, "load")()
	var doc struct {
		Data bson.M `bson:"data"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": 2}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

// Shared helpers for chat-keyed documents.

func migrateChatID(ctx context.Context, coll *mongo.Collection, name string, oldID, newID int64) error {
	defer observe(name, "migrate")()
	_, err := coll.UpdateOne(ctx,
		bson.M{"chat_id": oldID},
		bson.M{"$set": bson.M{"chat_id": newID}},
	)
	return err
}

func exportChatDoc(ctx context.Context, coll *mongo.Collection, name string, chatID int64) (bson.M, error) {
	defer observe(name, "export")()
	var doc bson.M
	err := coll.FindOne(ctx, bson.M{"chat_id": chatID},
		options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func importChatDoc(ctx context.Context, coll *mongo.Collection, name string, chatID int64, data bson.M) error {
	defer observe(name, "import")()
	data["chat_id"] = chatID
	_, err := coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": data},
		options.Update().SetUpsert(true),
	)
	return err
}
