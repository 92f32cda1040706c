package plugins

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
)

// usersPlugin passively tracks every chat and user the bot sees so moderation
// commands can resolve usernames and broadcasts know where to go.
type usersPlugin struct {
	bot *bot.Bot
}

var (
	_ bot.MessageListener    = (*usersPlugin)(nil)
	_ bot.ChatActionListener = (*usersPlugin)(nil)
	_ bot.MigrateListener    = (*usersPlugin)(nil)
)

func NewUsers(b *bot.Bot) bot.Plugin { return &usersPlugin{bot: b} }

func (p *usersPlugin) Name() string { return "users" }

func (p *usersPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "info", Handler: p.cmdInfo},
	}
}

// cmdInfo prints what the bot has recorded about a user.
func (p *usersPlugin) cmdInfo(ctx context.Context, c *command.Context) error {
	userID := c.SenderID()
	name := ""
	if len(c.Args) > 0 || c.ReplyMsg() != nil {
		target, err := p.bot.ExtractTarget(ctx, c)
		if err != nil {
			_, rerr := c.Reply(ctx, err.Error())
			return rerr
		}
		userID = target.UserID
		name = target.Name
	}

	user, err := p.bot.DB.Users.Get(ctx, userID)
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "users-unknown")
		return err
	}
	if err != nil {
		return err
	}

	if name == "" && user.Username != "" {
		name = "@" + user.Username
	}
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}

	var sb strings.Builder
	sb.WriteString(c.Text("users-info-title", name))
	sb.WriteString("\n" + c.Text("users-info-id", user.ID))
	if user.Username != "" {
		sb.WriteString("\n" + c.Text("users-info-username", user.Username))
	}
	sb.WriteString("\n" + c.Text("users-info-chats", len(user.Chats)))
	sb.WriteString("\n" + c.Text("users-info-reputation", user.Reputation))
	if p.bot.IsStaff(user.ID) {
		sb.WriteString("\n" + c.Text("users-info-staff"))
	}
	_, err = c.Reply(ctx, sb.String())
	return err
}

// Tracking runs late so moderation listeners see the message first.
func (p *usersPlugin) ListenPriority() int { return 90 }

func (p *usersPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.From == nil || msg.From.IsBot {
		return false, nil
	}

	if msg.Chat.IsPrivate() {
		return false, p.bot.DB.Users.TrackPrivate(ctx, msg.From.ID, msg.From.UserName)
	}

	if err := p.bot.DB.Chats.TouchMember(ctx, msg.Chat.ID, msg.Chat.Title, msg.From.ID); err != nil {
		return false, err
	}
	return false, p.bot.DB.Users.Track(ctx, msg.From.ID, msg.From.UserName, msg.Chat.ID)
}

func (p *usersPlugin) OnChatAction(ctx context.Context, msg *tgbotapi.Message) error {
	self := p.bot.Client.Self().ID

	for _, member := range msg.NewChatMembers {
		if member.ID == self {
			p.bot.Log.Info().Int64("chat_id", msg.Chat.ID).Str("title", msg.Chat.Title).Msg("joined chat")
			continue
		}
		if member.IsBot {
			continue
		}
		if err := p.bot.DB.Chats.TouchMember(ctx, msg.Chat.ID, msg.Chat.Title, member.ID); err != nil {
			return err
		}
		if err := p.bot.DB.Users.Track(ctx, member.ID, member.UserName, msg.Chat.ID); err != nil {
			return err
		}
	}

	if left := msg.LeftChatMember; left != nil {
		if left.ID == self {
			// The bot was removed; forget the chat entirely.
			if err := p.bot.DB.Users.PullChatFromAll(ctx, msg.Chat.ID); err != nil {
				return err
			}
			return p.bot.DB.Chats.Delete(ctx, msg.Chat.ID)
		}
		if err := p.bot.DB.Chats.RemoveMember(ctx, msg.Chat.ID, left.ID); err != nil {
			return err
		}
		return p.bot.DB.Users.RemoveChat(ctx, left.ID, msg.Chat.ID)
	}
	return nil
}

func (p *usersPlugin) OnChatMigrate(ctx context.Context, oldID, newID int64) error {
	if err := p.bot.DB.Chats.Migrate(ctx, oldID, newID); err != nil {
		return err
	}
	return p.bot.DB.Users.Migrate(ctx, oldID, newID)
}
