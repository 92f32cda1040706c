package plugins

import (
	"context"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
)

// mutingPlugin revokes and restores the send permission.
type mutingPlugin struct {
	bot *bot.Bot
}

func NewMuting(b *bot.Bot) bot.Plugin { return &mutingPlugin{bot: b} }

func (p *mutingPlugin) Name() string { return "muting" }

func (p *mutingPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "mute", Filter: p.bot.CanRestrict(), Handler: p.cmdMute, HelpKey: "muting-help"},
		{Name: "unmute", Filter: p.bot.CanRestrict(), Handler: p.cmdUnmute},
	}
}

func (p *mutingPlugin) cmdMute(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if p.bot.IsStaff(target.UserID) || target.UserID == p.bot.Client.Self().ID {
		_, err := c.ReplyText(ctx, "restriction-protected")
		return err
	}
	isAdmin, err := p.bot.Client.IsAdmin(ctx, c.ChatID(), target.UserID)
	if err != nil {
		return err
	}
	if isAdmin {
		_, err := c.ReplyText(ctx, "muting-target-admin")
		return err
	}

	until, reason := parseUntil(c.Args[target.ArgOffset:])
	if err := p.bot.Client.MuteMember(ctx, c.ChatID(), target.UserID, until); err != nil {
		return err
	}

	text := c.Text("muting-muted", target.Name)
	if !until.IsZero() {
		text = c.Text("muting-muted-until", target.Name, until.Format("2006-01-02 15:04 MST"))
	}
	if reason != "" {
		text += "\n" + c.Text("restriction-reason", reason)
	}
	_, err = c.Reply(ctx, text)
	return err
}

func (p *mutingPlugin) cmdUnmute(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.Client.UnmuteMember(ctx, c.ChatID(), target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "muting-unmuted", target.Name)
	return err
}
