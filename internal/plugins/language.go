package plugins

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
)

// languagePlugin lets chats pick their locale.
type languagePlugin struct {
	bot *bot.Bot
}

var _ bot.CallbackListener = (*languagePlugin)(nil)

func NewLanguage(b *bot.Bot) bot.Plugin { return &languagePlugin{bot: b} }

func (p *languagePlugin) Name() string { return "language" }

func (p *languagePlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "setlang", Aliases: []string{"lang", "language"}, Filter: p.adminInGroups(), Handler: p.cmdSetLang, HelpKey: "language-help"},
	}
}

// adminInGroups requires admin in groups but allows anyone in private, where
// the choice only affects their own chat with the bot.
func (p *languagePlugin) adminInGroups() command.Filter {
	admin := p.bot.AdminOnly()
	return func(ctx context.Context, c *command.Context) (bool, error) {
		if c.IsPrivate() {
			return true, nil
		}
		return admin(ctx, c)
	}
}

func (p *languagePlugin) cmdSetLang(ctx context.Context, c *command.Context) error {
	var row []tgbotapi.InlineKeyboardButton
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, code := range p.bot.Bundle.Codes() {
		label := p.bot.Bundle.Text(code, "language-name")
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "lang:"+code))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	kb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	_, err := c.RespondKeyboard(ctx, c.Text("language-current", c.Text("language-name")), &kb)
	return err
}

func (p *languagePlugin) OnCallback(ctx context.Context, query *tgbotapi.CallbackQuery) (bool, error) {
	if !strings.HasPrefix(query.Data, "lang:") {
		return false, nil
	}
	if query.Message == nil {
		return true, nil
	}

	chatID := query.Message.Chat.ID
	code := strings.TrimPrefix(query.Data, "lang:")

	// In groups only admins may flip the language from the keyboard.
	if !query.Message.Chat.IsPrivate() && !p.bot.IsStaff(query.From.ID) {
		ok, err := p.bot.Client.IsAdmin(ctx, chatID, query.From.ID)
		if err != nil {
			return true, err
		}
		if !ok {
			return true, p.bot.Client.AnswerCallback(ctx, query.ID,
				p.bot.Text(chatID, "err-admin-required"), true)
		}
	}

	if err := p.bot.SetLang(ctx, chatID, code); err != nil {
		return true, err
	}
	if err := p.bot.Client.AnswerCallback(ctx, query.ID, "", false); err != nil {
		p.bot.Log.Debug().Err(err).Msg("callback answer failed")
	}
	return true, p.bot.Client.EditText(ctx, chatID, query.Message.MessageID,
		p.bot.Bundle.Text(code, "language-set", p.bot.Bundle.Text(code, "language-name")), nil)
}
