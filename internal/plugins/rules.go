package plugins

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
)

// rulesPlugin stores chat rules and serves them over a PM deep link so the
// group stays clean.
type rulesPlugin struct {
	bot *bot.Bot
}

var (
	_ bot.MigrateListener = (*rulesPlugin)(nil)
	_ bot.Backupper       = (*rulesPlugin)(nil)
	_ bot.Restorer        = (*rulesPlugin)(nil)
)

func NewRules(b *bot.Bot) bot.Plugin { return &rulesPlugin{bot: b} }

func (p *rulesPlugin) Name() string { return "rules" }

func (p *rulesPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "setrules", Filter: p.bot.AdminOnly(), Handler: p.cmdSetRules, HelpKey: "rules-help"},
		{Name: "rules", Filter: p.bot.GroupOnly(), Handler: p.cmdRules},
		{Name: "clearrules", Filter: p.bot.AdminOnly(), Handler: p.cmdClearRules},
	}
}

func (p *rulesPlugin) cmdSetRules(ctx context.Context, c *command.Context) error {
	rules := c.InputRaw()
	if rules == "" {
		if reply := c.ReplyMsg(); reply != nil {
			rules = reply.Text
		}
	}
	if rules == "" {
		_, err := c.ReplyText(ctx, "rules-need-text")
		return err
	}

	if err := p.bot.DB.Rules.Set(ctx, c.ChatID(), rules); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "rules-set")
	return err
}

func (p *rulesPlugin) cmdRules(ctx context.Context, c *command.Context) error {
	_, err := p.bot.DB.Rules.Get(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "rules-none")
		return err
	}
	if err != nil {
		return err
	}

	link := fmt.Sprintf("https://t.me/%s?start=rules_%d", p.bot.Client.Self().UserName, c.ChatID())
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(c.Text("rules-button"), link),
		),
	)
	_, err = c.RespondKeyboard(ctx, c.Text("rules-prompt"), &kb)
	return err
}

func (p *rulesPlugin) cmdClearRules(ctx context.Context, c *command.Context) error {
	if err := p.bot.DB.Rules.Clear(ctx, c.ChatID()); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "rules-cleared")
	return err
}

func (p *rulesPlugin) OnChatMigrate(ctx context.Context, oldID, newID int64) error {
	return p.bot.DB.Rules.Migrate(ctx, oldID, newID)
}

func (p *rulesPlugin) Backup(ctx context.Context, chatID int64) (bson.M, error) {
	return p.bot.DB.Rules.Export(ctx, chatID)
}

func (p *rulesPlugin) Restore(ctx context.Context, chatID int64, data bson.M) error {
	return p.bot.DB.Rules.Import(ctx, chatID, data)
}
