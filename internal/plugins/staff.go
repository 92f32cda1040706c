package plugins

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/infra/redis"
)

// staffPlugin holds owner and staff tooling: broadcasts, stats and staff
// management.
type staffPlugin struct {
	bot     *bot.Bot
	entropy *ulid.MonotonicEntropy
}

func NewStaff(b *bot.Bot) bot.Plugin {
	return &staffPlugin{
		bot:     b,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (p *staffPlugin) Name() string { return "staff_tools" }

func (p *staffPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "broadcast", Filter: p.bot.StaffOnly(), Handler: p.cmdBroadcast},
		{Name: "stats", Filter: p.bot.StaffOnly(), Handler: p.cmdStats},
		{Name: "addstaff", Filter: p.bot.OwnerOnly(), Handler: p.cmdAddStaff},
		{Name: "delstaff", Filter: p.bot.OwnerOnly(), Handler: p.cmdDelStaff},
		{Name: "leavechat", Filter: p.bot.StaffOnly(), Handler: p.cmdLeaveChat},
	}
}

func (p *staffPlugin) cmdBroadcast(ctx context.Context, c *command.Context) error {
	text := c.InputRaw()
	if text == "" {
		_, err := c.ReplyText(ctx, "staff-broadcast-empty")
		return err
	}

	// One broadcast at a time, across replicas too.
	lock := redis.NewLock(p.bot.Redis, "broadcast", 30*time.Minute)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		_, err := c.ReplyText(ctx, "staff-broadcast-running")
		return err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			p.bot.Log.Warn().Err(err).Msg("broadcast lock release failed")
		}
	}()

	chatIDs, err := p.bot.DB.Chats.AllIDs(ctx)
	if err != nil {
		return err
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy)
	log := p.bot.Log.With().Str("broadcast_id", id.String()).Logger()
	log.Info().Int("chats", len(chatIDs)).Msg("broadcast started")

	sent, failed := 0, 0
	for _, chatID := range chatIDs {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.bot.Client.SendText(ctx, chatID, text, 0, nil); err != nil {
			failed++
			log.Debug().Err(err).Int64("chat_id", chatID).Msg("broadcast send failed")
			continue
		}
		sent++
	}

	log.Info().Int("sent", sent).Int("failed", failed).Msg("broadcast finished")
	_, err = c.ReplyText(ctx, "staff-broadcast-done", sent, failed)
	return err
}

func (p *staffPlugin) cmdStats(ctx context.Context, c *command.Context) error {
	chats, err := p.bot.DB.Chats.Count(ctx)
	if err != nil {
		return err
	}
	users, err := p.bot.DB.Users.Count(ctx)
	if err != nil {
		return err
	}

	uptime := time.Since(p.bot.StartedAt()).Round(time.Second)
	_, err = c.Respond(ctx, c.Text("staff-stats", chats, users, uptime.String()))
	return err
}

func (p *staffPlugin) cmdAddStaff(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.AddStaff(ctx, target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "staff-added", target.Name)
	return err
}

func (p *staffPlugin) cmdDelStaff(ctx context.Context, c *command.Context) error {
	target, err := p.bot.ExtractTarget(ctx, c)
	if err != nil {
		_, rerr := c.Reply(ctx, err.Error())
		return rerr
	}
	if err := p.bot.RemoveStaff(ctx, target.UserID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "staff-removed", target.Name)
	return err
}

func (p *staffPlugin) cmdLeaveChat(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		_, err := c.ReplyText(ctx, "staff-need-chat-id")
		return err
	}
	chatID, err := strconv.ParseInt(c.Args[0], 10, 64)
	if err != nil {
		_, rerr := c.ReplyText(ctx, "staff-need-chat-id")
		return rerr
	}

	if err := p.bot.Client.LeaveChat(ctx, chatID); err != nil {
		return err
	}
	_, err = c.ReplyText(ctx, "staff-left-chat", chatID)
	return err
}
