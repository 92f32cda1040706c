package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/util"
)

// NoteType mirrors the Telegram media kind a note was saved from.
type NoteType int

const (
	NoteText NoteType = iota
	NoteButtonText
	NoteDocument
	NotePhoto
	NoteVideo
	NoteSticker
	NoteAudio
	NoteVoice
	NoteVideoNote
	NoteAnimation
)

// Note is one saved note. Content is the Telegram file id for media notes.
type Note struct {
	Text    string        `bson:"text"`
	Type    NoteType      `bson:"type"`
	Content string        `bson:"content,omitempty"`
	Buttons []util.Button `bson:"button,omitempty"`
}

type NotesRepository interface {
	Save(ctx context.Context, chatID int64, chatName, name string, note Note) error
	Get(ctx context.Context, chatID int64, name string) (*Note, error)
	Names(ctx context.Context, chatID int64) ([]string, error)
	Delete(ctx context.Context, chatID int64, name string) error
	Migrate(ctx context.Context, oldID, newID int64) error
	Export(ctx context.Context, chatID int64) (bson.M, error)
	Import(ctx context.Context, chatID int64, data bson.M) error
}

var _ NotesRepository = (*notesRepo)(nil)

type notesRepo struct {
	coll *mongo.Collection
}

func NewNotesRepo(c *Client) *notesRepo {
	return &notesRepo{coll: c.db.Collection(collNotes)}
}

func (r *notesRepo) Save(ctx context.Context, chatID int64, chatName, name string, note Note) error {
	defer observe(collNotes, "save")()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{
			"chat_name":      chatName,
			"notes." + name: note,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *notesRepo) Get(ctx context.Context, chatID int64, name string) (*Note, error) {
	defer observe(collNotes, "get")()
	var doc struct {
		Notes map[string]Note `bson:"notes"`
	}
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, derror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notes for chat %d: %w", chatID, err)
	}

	note, ok := doc.Notes[name]
	if !ok {
		return nil, derror.ErrNotFound
	}
	return &note, nil
}

func (r *notesRepo) Names(ctx context.Context, chatID int64) ([]string, error) {
	defer observe(collNotes, "names")()
	var doc struct {
		Notes map[string]Note `bson:"notes"`
	}
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(doc.Notes))
	for name := range doc.Notes {
		names = append(names, name)
	}
	return names, nil
}

func (r *notesRepo) Delete(ctx context.Context, chatID int64, name string) error {
	defer observe(collNotes, "delete")()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "notes." + name: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{"notes." + name: ""}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return derror.ErrNotFound
	}
	return nil
}

func (r *notesRepo) Migrate(ctx context.Context, oldID, newID int64) error {
	return migrateChatID(ctx, r.coll, collNotes, oldID, newID)
}

func (r *notesRepo) Export(ctx context.Context, chatID int64) (bson.M, error) {
	return exportChatDoc(ctx, r.coll, collNotes, chatID)
}

func (r *notesRepo) Import(ctx context.Context, chatID int64, data bson.M) error {
	return importChatDoc(ctx, r.coll, collNotes, chatID, data)
}
