package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
)

const backupVersion = 1

// backupFile is the exported JSON document layout.
type backupFile struct {
	ChatID  int64                     `json:"chat_id"`
	Date    time.Time                 `json:"date"`
	Version int                       `json:"version"`
	Data    map[string]map[string]any `json:"data"`
}

// backupsPlugin exports and restores a chat's settings as a JSON document.
type backupsPlugin struct {
	bot     *bot.Bot
	entropy *ulid.MonotonicEntropy
}

func NewBackups(b *bot.Bot) bot.Plugin {
	return &backupsPlugin{
		bot:     b,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (p *backupsPlugin) Name() string { return "backups" }

func (p *backupsPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "backup", Filter: p.bot.AdminOnly(), Handler: p.cmdBackup, HelpKey: "backups-help"},
		{Name: "restore", Filter: p.bot.AdminOnly(), Handler: p.cmdRestore},
	}
}

func (p *backupsPlugin) cmdBackup(ctx context.Context, c *command.Context) error {
	file := backupFile{
		ChatID:  c.ChatID(),
		Date:    time.Now().UTC(),
		Version: backupVersion,
		Data:    make(map[string]map[string]any),
	}

	for name, bk := range p.bot.Backuppers() {
		section, err := bk.Backup(ctx, c.ChatID())
		if err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
		if section == nil {
			continue
		}
		file.Data[name] = section
	}

	if len(file.Data) == 0 {
		_, err := c.ReplyText(ctx, "backups-nothing")
		return err
	}

	payload, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy)
	name := fmt.Sprintf("anjani_backup_%d_%s.json", c.ChatID(), id)
	_, err = p.bot.Client.SendDocumentBytes(ctx, c.ChatID(), name, payload,
		c.Text("backups-caption", c.Msg.Chat.Title), c.Msg.MessageID)
	return err
}

func (p *backupsPlugin) cmdRestore(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil || reply.Document == nil {
		_, err := c.ReplyText(ctx, "backups-need-file")
		return err
	}

	raw, err := p.bot.Client.DownloadFile(ctx, reply.Document.FileID)
	if err != nil {
		return err
	}

	var file backupFile
	if err := json.Unmarshal(raw, &file); err != nil {
		_, rerr := c.ReplyText(ctx, "backups-invalid-file")
		if rerr != nil {
			return rerr
		}
		return nil
	}

	// Restoring another chat's backup would silently cross-wire settings.
	if file.ChatID != c.ChatID() {
		_, err := c.ReplyText(ctx, "backups-chat-mismatch")
		return err
	}

	restored := 0
	for name, rs := range p.bot.Restorers() {
		section, ok := file.Data[name]
		if !ok {
			continue
		}
		if err := rs.Restore(ctx, c.ChatID(), bson.M(section)); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		restored++
	}

	_, err = c.ReplyText(ctx, "backups-restored", restored)
	return err
}
