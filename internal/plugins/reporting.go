package plugins

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/util"
)

// reportingPlugin pings chat admins when a member reports a message, either
// with /report or an "@admin" mention.
type reportingPlugin struct {
	bot *bot.Bot
}

var _ bot.MessageListener = (*reportingPlugin)(nil)

func NewReporting(b *bot.Bot) bot.Plugin { return &reportingPlugin{bot: b} }

func (p *reportingPlugin) Name() string { return "reporting" }

func (p *reportingPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "report", Filter: p.bot.GroupOnly(), Handler: p.cmdReport, HelpKey: "reporting-help"},
	}
}

func (p *reportingPlugin) cmdReport(ctx context.Context, c *command.Context) error {
	// "/report on|off" toggles the chat setting, admins only.
	if len(c.Args) == 1 {
		if enabled, ok := parseToggle(c.Args[0]); ok {
			isAdmin, err := p.bot.Client.IsAdmin(ctx, c.ChatID(), c.SenderID())
			if err != nil {
				return err
			}
			if !isAdmin {
				_, err := c.ReplyText(ctx, "err-admin-required")
				return err
			}
			if err := p.bot.DB.Chats.SetReporting(ctx, c.ChatID(), enabled); err != nil {
				return err
			}
			key := "reporting-disabled"
			if enabled {
				key = "reporting-enabled"
			}
			_, err = c.ReplyText(ctx, key)
			return err
		}
	}

	if !p.enabled(ctx, c.ChatID()) {
		_, err := c.ReplyText(ctx, "reporting-off")
		return err
	}

	reply := c.ReplyMsg()
	if reply == nil {
		_, err := c.ReplyText(ctx, "reporting-need-reply")
		return err
	}
	if reply.From != nil && reply.From.ID == c.SenderID() {
		_, err := c.ReplyText(ctx, "reporting-self")
		return err
	}
	return p.report(ctx, c.Msg, reply)
}

func (p *reportingPlugin) enabled(ctx context.Context, chatID int64) bool {
	chat, err := p.bot.DB.Chats.Get(ctx, chatID)
	if err != nil {
		return true
	}
	return chat.ReportingEnabled()
}

// report notifies admins with invisible mentions attached to the message.
func (p *reportingPlugin) report(ctx context.Context, trigger, reported *tgbotapi.Message) error {
	// Reporting an admin is a no-op.
	if reported.From != nil {
		isAdmin, err := p.bot.Client.IsAdmin(ctx, trigger.Chat.ID, reported.From.ID)
		if err != nil {
			return err
		}
		if isAdmin {
			_, err := p.bot.Client.SendText(ctx, trigger.Chat.ID,
				p.bot.Text(trigger.Chat.ID, "reporting-admin-target"), trigger.MessageID, nil)
			return err
		}
	}

	admins, err := p.bot.Client.ChatAdmins(ctx, trigger.Chat.ID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(p.bot.Text(trigger.Chat.ID, "reporting-notice",
		util.FullName(trigger.From.FirstName, trigger.From.LastName)))
	// Zero-width mentions make Telegram deliver a notification without
	// cluttering the visible text.
	for _, a := range admins {
		sb.WriteString(util.Mention(a.UserID, "​"))
	}

	_, err = p.bot.Client.SendText(ctx, trigger.Chat.ID, sb.String(), reported.MessageID, nil)
	return err
}

// OnMessage watches for the "@admin" keyword.
func (p *reportingPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.Chat.IsPrivate() || msg.ReplyToMessage == nil || msg.From == nil {
		return false, nil
	}
	lower := strings.ToLower(msg.Text)
	if !strings.Contains(lower, "@admin") {
		return false, nil
	}
	if msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == msg.From.ID {
		return false, nil
	}
	if !p.enabled(ctx, msg.Chat.ID) {
		return false, nil
	}
	return true, p.report(ctx, msg, msg.ReplyToMessage)
}
