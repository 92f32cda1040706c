package plugins

import (
	"context"
	"strings"
	"time"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/util"
)

// restrictionPlugin bans and kicks members.
type restrictionPlugin struct {
	bot *bot.Bot
}

func NewRestriction(b *bot.Bot) bot.Plugin { return &restrictionPlugin{bot: b} }

func (p *restrictionPlugin) Name() string { return "restriction" }

func (p *restrictionPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "ban", Filter: p.bot.CanRestrict(), Handler: p.cmdBan, HelpKey: "restriction-help"},
		{Name: "unban", Filter: p.bot.CanRestrict(), Handler: p.cmdUnban},
		{Name: "kick", Filter: p.bot.CanRestrict(), Handler: p.cmdKick},
		{Name: "kickme", Filter: p.bot.GroupOnly(), Handler: p.cmdKickMe},
	}
}

// parseUntil pulls an optional duration flag (30m, 2h, 7d) off the front of
// the remaining arguments. The rest is the reason.
func parseUntil(args []string) (time.Time, string) {
	if len(args) > 0 && util.IsRestrictionFlag(args[0]) {
		until, err := util.ParseRestrictionTime(time.Now(), args[0])
		if err == nil {
			return until, strings.Join(args[1:], " ")
		}
	}
	return time.Time{}, strings.Join(args, " ")
}

// adminLookup is the membership check the ban and kick guards need.
type adminLookup interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// restrictionProtected reports whether a target is off limits for bans and
// kicks: staff, the bot itself, or a chat admin.
func restrictionProtected(ctx context.Context, admins adminLookup, isStaff func(int64) bool, selfID, chatID, userID int64) (bool, error) {
	if isStaff(userID) || userID == selfID {
		return true, nil
	}
	return admins.IsAdmin(ctx, chatID, userID)
}

func (p *restrictionPlugin) cmdBan(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	protected, err := restrictionProtected(ctx, p.bot.Client, p.bot.IsStaff,
		p.bot.Client.Self().ID, c.ChatID(), target.UserID)
	if err != nil {
		return err
	}
	if protected {
		_, err := c.ReplyText(ctx, "restriction-protected")
		return err
	}

	until, reason := parseUntil(c.Args[target.ArgOffset:])
	if err := p.bot.Client.BanMember(ctx, c.ChatID(), target.UserID, until); err != nil {
		return err
	}

	text := c.Text("restriction-banned", target.Name)
	if !until.IsZero() {
		text = c.Text("restriction-banned-until", target.Name, until.Format("2006-01-02 15:04 MST"))
	}
	if reason != "" {
		text += "\n" + c.Text("restriction-reason", reason)
	}
	_, err = c.Reply(ctx, text)
	return err
}

func (p *restrictionPlugin) cmdUnban(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.Client.UnbanMember(ctx, c.ChatID(), target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "restriction-unbanned", target.Name)
	return err
}

func (p *restrictionPlugin) cmdKick(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	protected, err := restrictionProtected(ctx, p.bot.Client, p.bot.IsStaff,
		p.bot.Client.Self().ID, c.ChatID(), target.UserID)
	if err != nil {
		return err
	}
	if protected {
		_, err := c.ReplyText(ctx, "restriction-protected")
		return err
	}
	if err := p.bot.Client.KickMember(ctx, c.ChatID(), target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "restriction-kicked", target.Name)
	return err
}

// cmdKickMe lets a member remove themselves, unless they are an admin.
func (p *restrictionPlugin) cmdKickMe(ctx context.Context, c *command.Context) error {
	isAdmin, err := p.bot.Client.IsAdmin(ctx, c.ChatID(), c.SenderID())
	if err != nil {
		return err
	}
	if isAdmin {
		_, err := c.ReplyText(ctx, "restriction-kickme-admin")
		return err
	}
	if _, err := c.ReplyText(ctx, "restriction-kickme"); err != nil {
		return err
	}
	return p.bot.Client.KickMember(ctx, c.ChatID(), c.SenderID())
}
