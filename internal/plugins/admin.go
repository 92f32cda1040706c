package plugins

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/util"
)

// adminPlugin covers day-to-day group administration.
type adminPlugin struct {
	bot *bot.Bot
}

func NewAdmin(b *bot.Bot) bot.Plugin { return &adminPlugin{bot: b} }

func (p *adminPlugin) Name() string { return "admins" }

func (p *adminPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "pin", Filter: p.bot.CanPin(), Handler: p.cmdPin, HelpKey: "admins-help"},
		{Name: "unpin", Filter: p.bot.CanPin(), Handler: p.cmdUnpin},
		{Name: "adminlist", Filter: p.bot.GroupOnly(), Handler: p.cmdAdminList},
		{Name: "zombies", Filter: p.bot.CanRestrict(), Handler: p.cmdZombies},
		{Name: "promote", Filter: p.bot.CanPromote(), Handler: p.cmdPromote},
		{Name: "demote", Filter: p.bot.CanPromote(), Handler: p.cmdDemote},
		{Name: "setgpic", Filter: p.bot.CanChangeInfo(), Handler: p.cmdSetPhoto},
		{Name: "setgtitle", Filter: p.bot.CanChangeInfo(), Handler: p.cmdSetTitle},
	}
}

func (p *adminPlugin) cmdPin(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil {
		_, err := c.ReplyText(ctx, "err-reply-to-message")
		return err
	}

	loud := strings.EqualFold(c.Input(), "loud") || strings.EqualFold(c.Input(), "notify")
	return p.bot.Client.PinMessage(ctx, c.ChatID(), reply.MessageID, loud)
}

func (p *adminPlugin) cmdUnpin(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil {
		// Without a reply the most recent pin is removed.
		return p.bot.Client.UnpinMessage(ctx, c.ChatID(), 0)
	}
	return p.bot.Client.UnpinMessage(ctx, c.ChatID(), reply.MessageID)
}

func (p *adminPlugin) cmdAdminList(ctx context.Context, c *command.Context) error {
	admins, err := p.bot.Client.ChatAdmins(ctx, c.ChatID())
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(c.Text("admins-list-title", c.Msg.Chat.Title))
	for _, a := range admins {
		name := a.Name
		if name == "" {
			name = strconv.FormatInt(a.UserID, 10)
		}
		sb.WriteString("\n• " + util.EscapeMarkdown(name))
		if a.Creator {
			sb.WriteString(" " + c.Text("admins-list-creator"))
		}
	}
	_, err = c.Respond(ctx, sb.String())
	return err
}

// cmdZombies kicks deleted accounts. The Bot API cannot enumerate members,
// so only users the bot has seen in this chat are checked.
func (p *adminPlugin) cmdZombies(ctx context.Context, c *command.Context) error {
	members, err := p.bot.DB.Users.InChat(ctx, c.ChatID())
	if err != nil {
		return err
	}

	kicked := 0
	for _, u := range members {
		member, err := p.bot.Client.GetChatMember(ctx, c.ChatID(), u.ID)
		if errors.Is(err, derror.ErrUserNotParticipant) {
			continue
		}
		if err != nil {
			return err
		}
		// Deleted accounts come back with an empty first name.
		if member.User == nil || member.User.FirstName != "" {
			continue
		}
		if err := p.bot.Client.KickMember(ctx, c.ChatID(), u.ID); err != nil {
			p.bot.Log.Warn().Err(err).Int64("user_id", u.ID).Msg("zombie kick failed")
			continue
		}
		kicked++
	}

	if kicked == 0 {
		_, err := c.RespondText(ctx, "admins-zombies-none")
		return err
	}
	_, err = c.RespondText(ctx, "admins-zombies-done", kicked)
	return err
}

func (p *adminPlugin) cmdPromote(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}

	if err := p.bot.Client.PromoteMember(ctx, c.ChatID(), target.UserID); err != nil {
		return err
	}
	p.bot.Client.InvalidateAdmins(ctx, c.ChatID())
	_, err = c.ReplyText(ctx, "admins-promoted", target.Name)
	return err
}

func (p *adminPlugin) cmdDemote(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}

	if err := p.bot.Client.DemoteMember(ctx, c.ChatID(), target.UserID); err != nil {
		return err
	}
	p.bot.Client.InvalidateAdmins(ctx, c.ChatID())
	_, err = c.ReplyText(ctx, "admins-demoted", target.Name)
	return err
}

func (p *adminPlugin) cmdSetPhoto(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil || len(reply.Photo) == 0 {
		_, err := c.ReplyText(ctx, "admins-need-photo")
		return err
	}

	// Largest size is last in the array.
	fileID := reply.Photo[len(reply.Photo)-1].FileID
	data, err := p.bot.Client.DownloadFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := p.bot.Client.SetChatPhoto(ctx, c.ChatID(), data); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "admins-photo-set")
	return err
}

func (p *adminPlugin) cmdSetTitle(ctx context.Context, c *command.Context) error {
	title := c.InputRaw()
	if title == "" {
		_, err := c.ReplyText(ctx, "admins-need-title")
		return err
	}
	if err := p.bot.Client.SetChatTitle(ctx, c.ChatID(), title); err != nil {
		return err
	}
	_, err := c.ReplyText(ctx, "admins-title-set", title)
	return err
}
