package plugins

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/util"
)

// welcomePlugin greets joining members and says goodbye to leaving ones.
// Greeting templates support {first} {last} {fullname} {username} {mention}
// {count} {chatname} {id} placeholders.
type welcomePlugin struct {
	bot *bot.Bot
}

var (
	_ bot.ChatActionListener = (*welcomePlugin)(nil)
	_ bot.MigrateListener    = (*welcomePlugin)(nil)
	_ bot.Backupper          = (*welcomePlugin)(nil)
	_ bot.Restorer           = (*welcomePlugin)(nil)
)

func NewWelcome(b *bot.Bot) bot.Plugin { return &welcomePlugin{bot: b} }

func (p *welcomePlugin) Name() string { return "welcome" }

func (p *welcomePlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "welcome", Filter: p.bot.AdminOnly(), Handler: p.cmdWelcome, HelpKey: "welcome-help"},
		{Name: "setwelcome", Filter: p.bot.AdminOnly(), Handler: p.cmdSetWelcome},
		{Name: "resetwelcome", Filter: p.bot.AdminOnly(), Handler: p.cmdResetWelcome},
		{Name: "goodbye", Filter: p.bot.AdminOnly(), Handler: p.cmdGoodbye},
		{Name: "cleanservice", Filter: p.bot.AdminOnly(), Handler: p.cmdCleanService},
	}
}

func parseToggle(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "on", "yes", "true":
		return true, true
	case "off", "no", "false":
		return false, true
	}
	return false, false
}

func (p *welcomePlugin) cmdWelcome(ctx context.Context, c *command.Context) error {
	settings, err := p.bot.DB.Welcome.Get(ctx, c.ChatID())
	if err != nil {
		return err
	}

	if len(c.Args) == 0 {
		// Show the current greeting, buttons rendered back to source form.
		text := settings.CustomWelcome
		if text == "" {
			text = c.Text("welcome-default")
		}
		state := c.Text("welcome-state-off")
		if settings.WelcomeEnabled() {
			state = c.Text("welcome-state-on")
		}
		_, err := c.Respond(ctx, c.Text("welcome-view", state)+"\n\n"+text+util.RevertButtons(settings.Buttons))
		return err
	}

	enabled, ok := parseToggle(c.Args[0])
	if !ok {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	if err := p.bot.DB.Welcome.SetWelcome(ctx, c.ChatID(), enabled); err != nil {
		return err
	}
	key := "welcome-disabled"
	if enabled {
		key = "welcome-enabled"
	}
	_, err = c.ReplyText(ctx, key)
	return err
}

func (p *welcomePlugin) cmdSetWelcome(ctx context.Context, c *command.Context) error {
	text := c.InputRaw()
	if text == "" {
		if reply := c.ReplyMsg(); reply != nil {
			text = reply.Text
		}
	}
	if text == "" {
		_, err := c.ReplyText(ctx, "welcome-need-text")
		return err
	}

	clean, buttons := util.ParseButtons(text)
	if err := p.bot.DB.Welcome.SetCustomWelcome(ctx, c.ChatID(), clean, buttons); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "welcome-set")
	return err
}

func (p *welcomePlugin) cmdResetWelcome(ctx context.Context, c *command.Context) error {
	if err := p.bot.DB.Welcome.ResetWelcome(ctx, c.ChatID()); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "welcome-reset")
	return err
}

func (p *welcomePlugin) cmdGoodbye(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	enabled, ok := parseToggle(c.Args[0])
	if !ok {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	if err := p.bot.DB.Welcome.SetGoodbye(ctx, c.ChatID(), enabled); err != nil {
		return err
	}
	key := "goodbye-disabled"
	if enabled {
		key = "goodbye-enabled"
	}
	_, err := c.ReplyText(ctx, key)
	return err
}

func (p *welcomePlugin) cmdCleanService(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	enabled, ok := parseToggle(c.Args[0])
	if !ok {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	if err := p.bot.DB.Welcome.SetCleanService(ctx, c.ChatID(), enabled); err != nil {
		return err
	}
	key := "cleanservice-disabled"
	if enabled {
		key = "cleanservice-enabled"
	}
	_, err := c.ReplyText(ctx, key)
	return err
}

// expand fills greeting placeholders for one user.
func (p *welcomePlugin) expand(ctx context.Context, template string, chat *tgbotapi.Chat, user *tgbotapi.User) string {
	count := ""
	if n, err := p.bot.Client.MemberCount(ctx, chat.ID); err == nil {
		count = strconv.Itoa(n)
	}

	username := "@" + user.UserName
	if user.UserName == "" {
		username = util.Mention(user.ID, util.FullName(user.FirstName, user.LastName))
	}

	r := strings.NewReplacer(
		"{first}", util.EscapeMarkdown(user.FirstName),
		"{last}", util.EscapeMarkdown(user.LastName),
		"{fullname}", util.EscapeMarkdown(util.FullName(user.FirstName, user.LastName)),
		"{username}", username,
		"{mention}", util.Mention(user.ID, util.FullName(user.FirstName, user.LastName)),
		"{count}", count,
		"{chatname}", util.EscapeMarkdown(chat.Title),
		"{id}", strconv.FormatInt(user.ID, 10),
	)
	return r.Replace(template)
}

func (p *welcomePlugin) OnChatAction(ctx context.Context, msg *tgbotapi.Message) error {
	settings, err := p.bot.DB.Welcome.Get(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	if settings.CleanService {
		if err := p.bot.Client.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
			p.bot.Log.Debug().Err(err).Msg("clean service delete failed")
		}
	}

	self := p.bot.Client.Self().ID

	if settings.WelcomeEnabled() {
		for _, member := range msg.NewChatMembers {
			if member.ID == self || member.IsBot {
				continue
			}
			m := member
			template := settings.CustomWelcome
			if template == "" {
				template = p.bot.Text(msg.Chat.ID, "welcome-default")
			}
			text := p.expand(ctx, template, msg.Chat, &m)

			sent, err := p.bot.Client.SendText(ctx, msg.Chat.ID, text, 0, util.BuildKeyboard(settings.Buttons))
			if err != nil {
				return err
			}

			// Keep only the latest greeting in the chat.
			prev, err := p.bot.DB.Welcome.SetPrevWelcome(ctx, msg.Chat.ID, sent.MessageID)
			if err != nil {
				return err
			}
			if prev != 0 {
				_ = p.bot.Client.DeleteMessage(ctx, msg.Chat.ID, prev)
			}
		}
	}

	if left := msg.LeftChatMember; left != nil && settings.GoodbyeEnabled() && left.ID != self {
		template := settings.CustomGoodbye
		if template == "" {
			template = p.bot.Text(msg.Chat.ID, "goodbye-default")
		}
		sent, err := p.bot.Client.SendText(ctx, msg.Chat.ID, p.expand(ctx, template, msg.Chat, left), 0, nil)
		if err != nil {
			return err
		}
		prev, err := p.bot.DB.Welcome.SetPrevGoodbye(ctx, msg.Chat.ID, sent.MessageID)
		if err != nil {
			return err
		}
		if prev != 0 {
			_ = p.bot.Client.DeleteMessage(ctx, msg.Chat.ID, prev)
		}
	}
	return nil
}

func (p *welcomePlugin) OnChatMigrate(ctx context.Context, oldID, newID int64) error {
	return p.bot.DB.Welcome.Migrate(ctx, oldID, newID)
}

func (p *welcomePlugin) Backup(ctx context.Context, chatID int64) (bson.M, error) {
	return p.bot.DB.Welcome.Export(ctx, chatID)
}

func (p *welcomePlugin) Restore(ctx context.Context, chatID int64, data bson.M) error {
	return p.bot.DB.Welcome.Import(ctx, chatID, data)
}
