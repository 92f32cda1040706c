package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/mongo"
	"github.com/userbotindo/anjani/internal/util"
)

// federationPlugin shares ban lists across chats. A banned user is removed
// from every federation chat on sight.
type federationPlugin struct {
	bot *bot.Bot
}

var (
	_ bot.MessageListener    = (*federationPlugin)(nil)
	_ bot.ChatActionListener = (*federationPlugin)(nil)
	_ bot.MigrateListener    = (*federationPlugin)(nil)
)

func NewFederation(b *bot.Bot) bot.Plugin { return &federationPlugin{bot: b} }

func (p *federationPlugin) Name() string { return "federation" }

// Enforcement runs before most listeners so a banned user never reaches the
// rest of the pipeline.
func (p *federationPlugin) ListenPriority() int { return 10 }

func (p *federationPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "newfed", Filter: p.bot.PrivateOnly(), Handler: p.cmdNewFed, HelpKey: "federation-help"},
		{Name: "delfed", Filter: p.bot.PrivateOnly(), Handler: p.cmdDelFed},
		{Name: "joinfed", Filter: p.bot.AdminOnly(), Handler: p.cmdJoinFed},
		{Name: "leavefed", Filter: p.bot.AdminOnly(), Handler: p.cmdLeaveFed},
		{Name: "fpromote", Filter: p.bot.GroupOnly(), Handler: p.cmdFPromote},
		{Name: "fdemote", Filter: p.bot.GroupOnly(), Handler: p.cmdFDemote},
		{Name: "finfo", Aliases: []string{"fedinfo"}, Handler: p.cmdFInfo},
		{Name: "fadmins", Aliases: []string{"fedadmins"}, Filter: p.bot.GroupOnly(), Handler: p.cmdFAdmins},
		{Name: "myfed", Filter: p.bot.PrivateOnly(), Handler: p.cmdMyFed},
		{Name: "fban", Filter: p.bot.GroupOnly(), Handler: p.cmdFBan},
		{Name: "unfban", Filter: p.bot.GroupOnly(), Handler: p.cmdUnFBan},
		{Name: "fedstat", Aliases: []string{"fedstats"}, Handler: p.cmdFedStat},
		{Name: "setfedlog", Filter: p.bot.AdminOnly(), Handler: p.cmdSetFedLog},
		{Name: "unsetfedlog", Filter: p.bot.AdminOnly(), Handler: p.cmdUnsetFedLog},
	}
}

func (p *federationPlugin) cmdNewFed(ctx context.Context, c *command.Context) error {
	name := c.InputRaw()
	if name == "" {
		_, err := c.ReplyText(ctx, "fed-need-name")
		return err
	}

	fed, err := p.bot.DB.Feds.Create(ctx, name, c.SenderID())
	if errors.Is(err, derror.ErrFedExists) {
		_, err := c.ReplyText(ctx, "fed-exists")
		return err
	}
	if err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-created", fed.Name, fed.ID)
	return err
}

func (p *federationPlugin) cmdDelFed(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByOwner(ctx, c.SenderID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-not-owner")
		return err
	}
	if err != nil {
		return err
	}

	if _, err := p.bot.DB.Feds.Delete(ctx, fed.ID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-deleted", fed.Name)
	return err
}

func (p *federationPlugin) cmdJoinFed(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "fed-need-id")
		return err
	}
	fid := c.Args[0]

	fed, err := p.bot.DB.Feds.Get(ctx, fid)
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-invalid-id")
		return err
	}
	if err != nil {
		return err
	}

	// A chat belongs to at most one federation.
	existing, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if err == nil {
		_, err := c.ReplyText(ctx, "fed-already-joined", existing.Name)
		return err
	}
	if !errors.Is(err, derror.ErrNotFound) {
		return err
	}

	if err := p.bot.DB.Feds.JoinChat(ctx, fid, c.ChatID()); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-joined", fed.Name)
	return err
}

func (p *federationPlugin) cmdLeaveFed(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-chat-not-in-fed")
		return err
	}
	if err != nil {
		return err
	}

	if err := p.bot.DB.Feds.LeaveChat(ctx, fed.ID, c.ChatID()); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-left", fed.Name)
	return err
}

// fedForAdmin resolves the chat's federation and checks the invoker is a fed
// admin. Replies with the refusal itself and returns nil fed on failure.
func (p *federationPlugin) fedForAdmin(ctx context.Context, c *command.Context) (*mongo.Federation, error) {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-chat-not-in-fed")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !fed.IsAdmin(c.SenderID()) {
		_, err := c.ReplyText(ctx, "fed-not-admin")
		return nil, err
	}
	return fed, nil
}

func (p *federationPlugin) cmdFPromote(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-chat-not-in-fed")
		return err
	}
	if err != nil {
		return err
	}
	if fed.Owner != c.SenderID() {
		_, err := c.ReplyText(ctx, "fed-owner-only")
		return err
	}

	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.DB.Feds.Promote(ctx, fed.ID, target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-promoted", target.Name, fed.Name)
	return err
}

func (p *federationPlugin) cmdFDemote(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-chat-not-in-fed")
		return err
	}
	if err != nil {
		return err
	}
	if fed.Owner != c.SenderID() {
		_, err := c.ReplyText(ctx, "fed-owner-only")
		return err
	}

	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.DB.Feds.Demote(ctx, fed.ID, target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-demoted", target.Name, fed.Name)
	return err
}

func (p *federationPlugin) cmdFInfo(ctx context.Context, c *command.Context) error {
	var fed *mongo.Federation
	var err error
	if len(c.Args) > 0 {
		fed, err = p.bot.DB.Feds.Get(ctx, c.Args[0])
	} else if !c.IsPrivate() {
		fed, err = p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	} else {
		fed, err = p.bot.DB.Feds.GetByOwner(ctx, c.SenderID())
	}
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-invalid-id")
		return err
	}
	if err != nil {
		return err
	}

	_, err = c.Respond(ctx, c.Text("fed-info",
		fed.ID, util.EscapeMarkdown(fed.Name), len(fed.Chats), len(fed.Admins), len(fed.Banned)))
	return err
}

func (p *federationPlugin) cmdFAdmins(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, c.ChatID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-chat-not-in-fed")
		return err
	}
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(c.Text("fed-admins-list", util.EscapeMarkdown(fed.Name)))
	sb.WriteString("\n- " + util.Mention(fed.Owner, c.Text("fed-owner-label")))
	for _, id := range fed.Admins {
		name := fmt.Sprintf("%d", id)
		if u, err := p.bot.DB.Users.Get(ctx, id); err == nil && u.Username != "" {
			name = "@" + u.Username
		}
		sb.WriteString("\n- " + name)
	}
	_, err = c.Respond(ctx, sb.String())
	return err
}

func (p *federationPlugin) cmdMyFed(ctx context.Context, c *command.Context) error {
	fed, err := p.bot.DB.Feds.GetByOwner(ctx, c.SenderID())
	if errors.Is(err, derror.ErrNotFound) {
		_, err := c.ReplyText(ctx, "fed-not-owner")
		return err
	}
	if err != nil {
		return err
	}
	_, err = c.RespondText(ctx, "fed-mine", fed.Name, fed.ID)
	return err
}

func (p *federationPlugin) cmdFBan(ctx context.Context, c *command.Context) error {
	fed, err := p.fedForAdmin(ctx, c)
	if fed == nil || err != nil {
		return err
	}

	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if p.bot.IsStaff(target.UserID) || fed.IsAdmin(target.UserID) || target.UserID == p.bot.Client.Self().ID {
		_, err := c.ReplyText(ctx, "fed-ban-protected")
		return err
	}

	reason := strings.Join(c.Args[target.ArgOffset:], " ")
	ban := mongo.FedBan{Name: target.Name, Reason: reason, Time: time.Now()}
	if err := p.bot.DB.Feds.Ban(ctx, fed.ID, target.UserID, ban); err != nil {
		return err
	}
	metrics.IncFedBan("ban")

	// The ban takes effect here immediately; other fed chats enforce on
	// sight.
	if err := p.bot.Client.BanMember(ctx, c.ChatID(), target.UserID, time.Time{}); err != nil {
		p.bot.Log.Warn().Err(err).Int64("user_id", target.UserID).Msg("fban local ban failed")
	}

	if reason == "" {
		reason = c.Text("fed-no-reason")
	}
	text := c.Text("fed-banned", target.Name, util.EscapeMarkdown(fed.Name), reason)
	if _, err := c.Reply(ctx, text); err != nil {
		return err
	}
	p.logToFed(ctx, fed, text)
	return nil
}

func (p *federationPlugin) cmdUnFBan(ctx context.Context, c *command.Context) error {
	fed, err := p.fedForAdmin(ctx, c)
	if fed == nil || err != nil {
		return err
	}

	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if _, banned := fed.BanOf(target.UserID); !banned {
		_, err := c.ReplyText(ctx, "fed-not-banned", target.Name)
		return err
	}

	if err := p.bot.DB.Feds.Unban(ctx, fed.ID, target.UserID); err != nil {
		return err
	}
	metrics.IncFedBan("unban")

	if err := p.bot.Client.UnbanMember(ctx, c.ChatID(), target.UserID); err != nil {
		p.bot.Log.Warn().Err(err).Int64("user_id", target.UserID).Msg("unfban local unban failed")
	}

	text := c.Text("fed-unbanned", target.Name, util.EscapeMarkdown(fed.Name))
	if _, err := c.Reply(ctx, text); err != nil {
		return err
	}
	p.logToFed(ctx, fed, text)
	return nil
}

func (p *federationPlugin) cmdFedStat(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		// Default to the invoker's own standing.
		target = &bot.Target{UserID: c.SenderID(), Name: util.FullName(c.Msg.From.FirstName, c.Msg.From.LastName)}
	}

	feds, err := p.bot.DB.Feds.BansOf(ctx, target.UserID)
	if err != nil {
		return err
	}
	if len(feds) == 0 {
		_, err := c.ReplyText(ctx, "fed-stat-clean", target.Name)
		return err
	}

	var sb strings.Builder
	sb.WriteString(c.Text("fed-stat-banned", target.Name))
	for _, fed := range feds {
		ban, _ := fed.BanOf(target.UserID)
		reason := ban.Reason
		if reason == "" {
			reason = c.Text("fed-no-reason")
		}
		sb.WriteString(fmt.Sprintf("\n- %s (`%s`): %s", util.EscapeMarkdown(fed.Name), fed.ID, reason))
	}
	_, err = c.Respond(ctx, sb.String())
	return err
}

func (p *federationPlugin) cmdSetFedLog(ctx context.Context, c *command.Context) error {
	fed, err := p.fedForAdmin(ctx, c)
	if fed == nil || err != nil {
		return err
	}
	if err := p.bot.DB.Feds.SetLog(ctx, fed.ID, c.ChatID()); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-log-set", util.EscapeMarkdown(fed.Name))
	return err
}

func (p *federationPlugin) cmdUnsetFedLog(ctx context.Context, c *command.Context) error {
	fed, err := p.fedForAdmin(ctx, c)
	if fed == nil || err != nil {
		return err
	}
	if err := p.bot.DB.Feds.SetLog(ctx, fed.ID, 0); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "fed-log-unset", util.EscapeMarkdown(fed.Name))
	return err
}

func (p *federationPlugin) logToFed(ctx context.Context, fed *mongo.Federation, text string) {
	if fed.Log == 0 {
		return
	}
	if _, err := p.bot.Client.SendText(ctx, fed.Log, text, 0, nil); err != nil {
		p.bot.Log.Warn().Err(err).Str("fed", fed.ID).Msg("fed log send failed")
	}
}

// enforce bans the user if the chat's federation has them on its list.
// Reports whether an enforcement happened.
func (p *federationPlugin) enforce(ctx context.Context, chatID int64, user *tgbotapi.User) (bool, error) {
	fed, err := p.bot.DB.Feds.GetByChat(ctx, chatID)
	if errors.Is(err, derror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ban, banned := fed.BanOf(user.ID)
	if !banned {
		return false, nil
	}

	if err := p.bot.Client.BanMember(ctx, chatID, user.ID, time.Time{}); err != nil {
		return false, err
	}
	metrics.IncFedBan("enforce")

	reason := ban.Reason
	if reason == "" {
		reason = p.bot.Text(chatID, "fed-no-reason")
	}
	_, err = p.bot.Client.SendText(ctx, chatID,
		p.bot.Text(chatID, "fed-autoban",
			util.Mention(user.ID, util.FullName(user.FirstName, user.LastName)),
			util.EscapeMarkdown(fed.Name), reason),
		0, nil)
	return true, err
}

func (p *federationPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.Chat.IsPrivate() || msg.From == nil || msg.From.IsBot {
		return false, nil
	}
	return p.enforce(ctx, msg.Chat.ID, msg.From)
}

func (p *federationPlugin) OnChatAction(ctx context.Context, msg *tgbotapi.Message) error {
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		m := member
		if _, err := p.enforce(ctx, msg.Chat.ID, &m); err != nil {
			return err
		}
	}
	return nil
}

func (p *federationPlugin) OnChatMigrate(ctx context.Context, oldID, newID int64) error {
	return p.bot.DB.Feds.Migrate(ctx, oldID, newID)
}
