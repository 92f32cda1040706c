package plugins

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
)

// mainPlugin answers /start and /help and drives the inline help menu.
type mainPlugin struct {
	bot *bot.Bot
}

var _ bot.CallbackListener = (*mainPlugin)(nil)

func NewMain(b *bot.Bot) bot.Plugin { return &mainPlugin{bot: b} }

func (p *mainPlugin) Name() string { return "main" }

func (p *mainPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "start", Handler: p.cmdStart},
		{Name: "help", Handler: p.cmdHelp},
		{Name: "markdownhelp", Handler: p.cmdMarkdownHelp},
	}
}

func (p *mainPlugin) cmdMarkdownHelp(ctx context.Context, c *command.Context) error {
	_, err := c.RespondText(ctx, "markdown-help")
	return err
}

func (p *mainPlugin) cmdStart(ctx context.Context, c *command.Context) error {
	if !c.IsPrivate() {
		_, err := c.ReplyText(ctx, "start-chat")
		return err
	}

	// Deep-link payloads: "help" opens the menu, "rules_<id>" shows a
	// chat's rules in private.
	payload := c.Input()
	switch {
	case payload == "help":
		return p.sendHelpMenu(ctx, c.ChatID(), c.Lang, 0)
	case strings.HasPrefix(payload, "rules_"):
		return p.sendRules(ctx, c, strings.TrimPrefix(payload, "rules_"))
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Text("help-button"), "help:menu"),
		),
	)
	_, err := c.RespondKeyboard(ctx, c.Text("start-pm", p.bot.Client.Self().FirstName), &kb)
	return err
}

func (p *mainPlugin) cmdHelp(ctx context.Context, c *command.Context) error {
	if c.IsPrivate() {
		return p.sendHelpMenu(ctx, c.ChatID(), c.Lang, 0)
	}

	link := fmt.Sprintf("https://t.me/%s?start=help", p.bot.Client.Self().UserName)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(c.Text("help-button"), link),
		),
	)
	_, err := c.RespondKeyboard(ctx, c.Text("help-chat"), &kb)
	return err
}

func (p *mainPlugin) sendRules(ctx context.Context, c *command.Context, raw string) error {
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}

	rules, err := p.bot.DB.Rules.Get(ctx, chatID)
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.RespondText(ctx, "rules-none")
		return err
	}
	if err != nil {
		return err
	}

	chatName := strconv.FormatInt(chatID, 10)
	if chat, err := p.bot.DB.Chats.Get(ctx, chatID); err == nil {
		chatName = chat.ChatName
	}
	_, err = c.Respond(ctx, c.Text("rules-view", chatName)+"\n\n"+rules)
	return err
}

// helpMenuKeyboard lays the plugin sections out three buttons per row.
func (p *mainPlugin) helpMenuKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, key := range p.bot.HelpKeys() {
		label := p.bot.Bundle.Text(lang, key+"-button")
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "help:"+key))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (p *mainPlugin) sendHelpMenu(ctx context.Context, chatID int64, lang string, editMsgID int) error {
	kb := p.helpMenuKeyboard(lang)
	text := p.bot.Bundle.Text(lang, "help-pm")
	if editMsgID != 0 {
		return p.bot.Client.EditText(ctx, chatID, editMsgID, text, &kb)
	}
	_, err := p.bot.Client.SendText(ctx, chatID, text, 0, &kb)
	return err
}

func (p *mainPlugin) OnCallback(ctx context.Context, query *tgbotapi.CallbackQuery) (bool, error) {
	if !strings.HasPrefix(query.Data, "help:") {
		return false, nil
	}
	if query.Message == nil {
		return true, nil
	}

	chatID := query.Message.Chat.ID
	lang := p.bot.Lang(chatID)
	section := strings.TrimPrefix(query.Data, "help:")

	if err := p.bot.Client.AnswerCallback(ctx, query.ID, "", false); err != nil {
		p.bot.Log.Debug().Err(err).Msg("callback answer failed")
	}

	if section == "menu" {
		return true, p.sendHelpMenu(ctx, chatID, lang, query.Message.MessageID)
	}

	back := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.bot.Bundle.Text(lang, "back-button"), "help:menu"),
		),
	)
	return true, p.bot.Client.EditText(ctx, chatID, query.Message.MessageID,
		p.bot.Bundle.Text(lang, section), &back)
}
