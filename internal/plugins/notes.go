package plugins

import (
	"context"
	"errors"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/infra/mongo"
	"github.com/userbotindo/anjani/internal/util"
)

// notesPlugin stores per-chat snippets retrievable by name or #hashtag.
type notesPlugin struct {
	bot *bot.Bot
}

var (
	_ bot.MessageListener = (*notesPlugin)(nil)
	_ bot.MigrateListener = (*notesPlugin)(nil)
	_ bot.Backupper       = (*notesPlugin)(nil)
	_ bot.Restorer        = (*notesPlugin)(nil)
)

func NewNotes(b *bot.Bot) bot.Plugin { return &notesPlugin{bot: b} }

func (p *notesPlugin) Name() string { return "notes" }

func (p *notesPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "save", Filter: p.bot.AdminOnly(), Handler: p.cmdSave, HelpKey: "notes-help"},
		{Name: "get", Filter: p.bot.GroupOnly(), Handler: p.cmdGet},
		{Name: "notes", Aliases: []string{"saved"}, Filter: p.bot.GroupOnly(), Handler: p.cmdList},
		{Name: "delnote", Aliases: []string{"clear"}, Filter: p.bot.AdminOnly(), Handler: p.cmdDelete},
	}
}

// validNoteName rejects names that cannot become a field in the notes
// subdocument: Mongo treats "." as a path separator and "$" as an operator.
func validNoteName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".$")
}

// noteFromReply captures the media kind and file id of a replied message.
func noteFromReply(reply *tgbotapi.Message) (mongo.NoteType, string, string) {
	switch {
	case reply.Document != nil:
		return mongo.NoteDocument, reply.Document.FileID, reply.Caption
	case len(reply.Photo) > 0:
		return mongo.NotePhoto, reply.Photo[len(reply.Photo)-1].FileID, reply.Caption
	case reply.Video != nil:
		return mongo.NoteVideo, reply.Video.FileID, reply.Caption
	case reply.Sticker != nil:
		return mongo.NoteSticker, reply.Sticker.FileID, ""
	case reply.Audio != nil:
		return mongo.NoteAudio, reply.Audio.FileID, reply.Caption
	case reply.Voice != nil:
		return mongo.NoteVoice, reply.Voice.FileID, reply.Caption
	case reply.VideoNote != nil:
		return mongo.NoteVideoNote, reply.VideoNote.FileID, ""
	case reply.Animation != nil:
		return mongo.NoteAnimation, reply.Animation.FileID, reply.Caption
	default:
		return mongo.NoteText, "", reply.Text
	}
}

func (p *notesPlugin) cmdSave(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "notes-need-name")
		return err
	}
	name := strings.ToLower(c.Args[0])
	if !validNoteName(name) {
		_, err := c.ReplyText(ctx, "notes-invalid-name")
		return err
	}

	var note mongo.Note
	if reply := c.ReplyMsg(); reply != nil {
		kind, fileID, text := noteFromReply(reply)
		clean, buttons := util.ParseButtons(text)
		note = mongo.Note{Text: clean, Type: kind, Content: fileID, Buttons: buttons}
	} else {
		raw := strings.TrimSpace(strings.TrimPrefix(c.InputRaw(), c.Args[0]))
		if raw == "" {
			_, err := c.ReplyText(ctx, "notes-need-content")
			return err
		}
		clean, buttons := util.ParseButtons(raw)
		kind := mongo.NoteText
		if len(buttons) > 0 {
			kind = mongo.NoteButtonText
		}
		note = mongo.Note{Text: clean, Type: kind, Buttons: buttons}
	}

	if err := p.bot.DB.Notes.Save(ctx, c.ChatID(), c.Msg.Chat.Title, name, note); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "notes-saved", name)
	return err
}

func (p *notesPlugin) sendNote(ctx context.Context, chatID int64, replyTo int, note *mongo.Note) error {
	kb := util.BuildKeyboard(note.Buttons)

	if note.Type == mongo.NoteText || note.Type == mongo.NoteButtonText {
		_, err := p.bot.Client.SendText(ctx, chatID, note.Text, replyTo, kb)
		return err
	}

	kind := map[mongo.NoteType]string{
		mongo.NoteDocument:  "document",
		mongo.NotePhoto:     "photo",
		mongo.NoteVideo:     "video",
		mongo.NoteSticker:   "sticker",
		mongo.NoteAudio:     "audio",
		mongo.NoteVoice:     "voice",
		mongo.NoteVideoNote: "video_note",
		mongo.NoteAnimation: "animation",
	}[note.Type]

	_, err := p.bot.Client.SendMedia(ctx, chatID, kind, note.Content, note.Text, replyTo, kb)
	return err
}

func (p *notesPlugin) getAndSend(ctx context.Context, c *command.Context, name string) error {
	note, err := p.bot.DB.Notes.Get(ctx, c.ChatID(), name)
	if errors.Is(err, derror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Replying to a reply points the note at the original message.
	replyTo := c.Msg.MessageID
	if r := c.ReplyMsg(); r != nil {
		replyTo = r.MessageID
	}
	return p.sendNote(ctx, c.ChatID(), replyTo, note)
}

func (p *notesPlugin) cmdGet(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "notes-need-name")
		return err
	}
	return p.getAndSend(ctx, c, strings.ToLower(c.Args[0]))
}

func (p *notesPlugin) cmdList(ctx context.Context, c *command.Context) error {
	names, err := p.bot.DB.Notes.Names(ctx, c.ChatID())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		_, err := c.ReplyText(ctx, "notes-empty")
		return err
	}

	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString(c.Text("notes-list", c.Msg.Chat.Title))
	for _, name := range names {
		sb.WriteString("\n- `#")
		sb.WriteString(name)
		sb.WriteString("`")
	}
	_, err = c.Respond(ctx, sb.String())
	return err
}

func (p *notesPlugin) cmdDelete(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "notes-need-name")
		return err
	}
	name := strings.ToLower(c.Args[0])

	err := p.bot.DB.Notes.Delete(ctx, c.ChatID(), name)
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "notes-not-found", name)
		return err
	}
	if err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "notes-deleted", name)
	return err
}

// OnMessage answers #hashtag note triggers.
func (p *notesPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.Chat.IsPrivate() || !strings.HasPrefix(msg.Text, "#") {
		return false, nil
	}

	name := strings.ToLower(strings.Fields(msg.Text)[0][1:])
	if name == "" {
		return false, nil
	}

	note, err := p.bot.DB.Notes.Get(ctx, msg.Chat.ID, name)
	if errors.Is(err, derror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	replyTo := msg.MessageID
	if msg.ReplyToMessage != nil {
		replyTo = msg.ReplyToMessage.MessageID
	}
	return true, p.sendNote(ctx, msg.Chat.ID, replyTo, note)
}

func (p *notesPlugin) OnChatMigrate(ctx context.Context, oldID, newID int64) error {
	return p.bot.DB.Notes.Migrate(ctx, oldID, newID)
}

func (p *notesPlugin) Backup(ctx context.Context, chatID int64) (bson.M, error) {
	return p.bot.DB.Notes.Export(ctx, chatID)
}

func (p *notesPlugin) Restore(ctx context.Context, chatID int64, data bson.M) error {
	return p.bot.DB.Notes.Import(ctx, chatID, data)
}
