package plugins

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/redis"
	"github.com/userbotindo/anjani/internal/infra/spamshield"
	"github.com/userbotindo/anjani/internal/util"
)

// spamShieldPlugin bans accounts listed in external spam databases. The check
// is opt-in per chat and verdicts are cached to spare the providers.
type spamShieldPlugin struct {
	bot      *bot.Bot
	checkers []spamshield.Checker
	cache    *redis.Cache
}

var (
	_ bot.MessageListener    = (*spamShieldPlugin)(nil)
	_ bot.ChatActionListener = (*spamShieldPlugin)(nil)
)

func NewSpamShield(b *bot.Bot, cas *spamshield.CAS, sw *spamshield.SpamWatch) bot.Plugin {
	checkers := []spamshield.Checker{cas}
	if sw.Enabled() {
		checkers = append(checkers, sw)
	}
	return &spamShieldPlugin{
		bot:      b,
		checkers: checkers,
		cache:    redis.NewCache(b.Redis, 6*time.Hour),
	}
}

func (p *spamShieldPlugin) Name() string { return "spamshield" }

func (p *spamShieldPlugin) ListenPriority() int { return 20 }

func (p *spamShieldPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "spamshield", Filter: p.bot.AdminOnly(), Handler: p.cmdToggle, HelpKey: "spamshield-help"},
	}
}

func (p *spamShieldPlugin) cmdToggle(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		active, err := p.bot.DB.Gban.IsActive(ctx, c.ChatID())
		if err != nil {
			return err
		}
		key := "spamshield-state-off"
		if active {
			key = "spamshield-state-on"
		}
		_, err = c.ReplyText(ctx, key)
		return err
	}

	enabled, ok := parseToggle(c.Args[0])
	if !ok {
		_, err := c.ReplyText(ctx, "err-invalid-option")
		return err
	}
	if err := p.bot.DB.Gban.Set(ctx, c.ChatID(), enabled); err != nil {
		return err
	}
	key := "spamshield-disabled"
	if enabled {
		key = "spamshield-enabled"
	}
	_, err := c.ReplyText(ctx, key)
	return err
}

// verdict asks providers about a user, consulting the cache first. The first
// positive answer wins.
func (p *spamShieldPlugin) verdict(ctx context.Context, userID int64) (*spamshield.Verdict, error) {
	key := redis.SpamVerdictKey(userID)

	var cached spamshield.Verdict
	if hit, err := p.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	var result *spamshield.Verdict
	for _, checker := range p.checkers {
		v, err := checker.Check(ctx, userID)
		if err != nil {
			p.bot.Log.Warn().Err(err).Str("provider", checker.Name()).Msg("spam check failed")
			continue
		}
		metrics.IncSpamVerdict(v.Source, verdictLabel(v))
		if v.Banned {
			result = v
			break
		}
		result = v
	}
	if result == nil {
		result = &spamshield.Verdict{Banned: false, Source: "none"}
	}

	if err := p.cache.Set(ctx, key, result); err != nil {
		p.bot.Log.Debug().Err(err).Msg("verdict cache write failed")
	}
	return result, nil
}

func verdictLabel(v *spamshield.Verdict) string {
	if v.Banned {
		return "banned"
	}
	return "clean"
}

// shield bans the user when a provider lists them and the chat opted in.
func (p *spamShieldPlugin) shield(ctx context.Context, chatID int64, user *tgbotapi.User) (bool, error) {
	active, err := p.bot.DB.Gban.IsActive(ctx, chatID)
	if err != nil || !active {
		return false, err
	}

	v, err := p.verdict(ctx, user.ID)
	if err != nil || !v.Banned {
		return false, err
	}

	if err := p.bot.Client.BanMember(ctx, chatID, user.ID, time.Time{}); err != nil {
		return false, err
	}
	_, err = p.bot.Client.SendText(ctx, chatID,
		p.bot.Text(chatID, "spamshield-banned",
			util.Mention(user.ID, util.FullName(user.FirstName, user.LastName)),
			v.Source, v.Reason),
		0, nil)
	return true, err
}

func (p *spamShieldPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.Chat.IsPrivate() || msg.From == nil || msg.From.IsBot {
		return false, nil
	}
	return p.shield(ctx, msg.Chat.ID, msg.From)
}

func (p *spamShieldPlugin) OnChatAction(ctx context.Context, msg *tgbotapi.Message) error {
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		m := member
		if _, err := p.shield(ctx, msg.Chat.ID, &m); err != nil {
			p.bot.Log.Warn().Err(err).Int64("user_id", m.ID).Msg("shield check failed")
		}
	}
	return nil
}
