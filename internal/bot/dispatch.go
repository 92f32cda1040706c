package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/redis"
)

// dispatch routes one update. It runs on the transport worker pool.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.dispatchMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		b.runMessageListeners(ctx, update.EditedMessage)
	case update.CallbackQuery != nil:
		b.dispatchCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) dispatchMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.MigrateFromChatID != 0 {
		b.dispatchMigration(ctx, msg.MigrateFromChatID, msg.Chat.ID)
		return
	}

	// Join and leave service messages bypass the message pipeline.
	if msg.NewChatMembers != nil || msg.LeftChatMember != nil {
		for _, l := range b.actionListeners {
			if err := l.OnChatAction(ctx, msg); err != nil {
				b.Log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("chat action listener failed")
			}
		}
		return
	}

	if msg.IsCommand() {
		b.dispatchCommand(ctx, msg)
	}
	b.runMessageListeners(ctx, msg)
}

// dispatchCommand resolves and runs a registered command. Commands addressed
// to another bot with an @mention are ignored.
func (b *Bot) dispatchCommand(ctx context.Context, msg *tgbotapi.Message) {
	withAt := msg.CommandWithAt()
	if at := strings.IndexByte(withAt, '@'); at >= 0 {
		if !strings.EqualFold(withAt[at+1:], b.Client.Self().UserName) {
			return
		}
	}

	name := msg.Command()
	reg, ok := b.commands[name]
	if !ok {
		return
	}

	if msg.From != nil && !b.IsStaff(msg.From.ID) {
		allowed, err := b.Limiter.Allow(ctx,
			redis.CommandKey(msg.From.ID, name),
			b.Config.AntiFlood.Limit, b.Config.AntiFlood.Window)
		if err != nil {
			b.Log.Warn().Err(err).Msg("anti-flood check failed")
		} else if !allowed {
			metrics.IncFloodDrop()
			b.Log.Debug().Int64("user_id", msg.From.ID).Str("command", name).Msg("flood drop")
			return
		}
	}

	c := &command.Context{
		Sender:  b.Client,
		Texter:  b.Bundle,
		Msg:     msg,
		Invoked: reg.spec.Name,
		Args:    strings.Fields(msg.CommandArguments()),
		Lang:    b.Lang(msg.Chat.ID),
	}

	if reg.spec.Filter != nil {
		pass, err := reg.spec.Filter(ctx, c)
		if err != nil {
			if _, serr := c.Reply(ctx, err.Error()); serr != nil {
				b.Log.Warn().Err(serr).Msg("filter error reply failed")
			}
			return
		}
		if !pass {
			return
		}
	}

	defer logging.TraceDuration(b.Log, reg.plugin+"."+reg.spec.Name)()
	start := time.Now()
	err := reg.spec.Handler(ctx, c)
	metrics.ObserveCommand(reg.spec.Name, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		b.Log.Error().Err(err).
			Str("command", reg.spec.Name).
			Str("plugin", reg.plugin).
			Int64("chat_id", msg.Chat.ID).
			Msg("command failed")
	}
}

func (b *Bot) runMessageListeners(ctx context.Context, msg *tgbotapi.Message) {
	for _, pl := range b.msgListeners {
		handled, err := pl.listener.OnMessage(ctx, msg)
		if err != nil {
			b.Log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("message listener failed")
			continue
		}
		if handled {
			return
		}
	}
}

func (b *Bot) dispatchCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	for _, l := range b.cbListeners {
		handled, err := l.OnCallback(ctx, query)
		if err != nil {
			b.Log.Error().Err(err).Str("data", query.Data).Msg("callback listener failed")
			continue
		}
		if handled {
			return
		}
	}
}

func (b *Bot) dispatchMigration(ctx context.Context, oldID, newID int64) {
	b.Log.Info().Int64("old", oldID).Int64("new", newID).Msg("chat migrated")

	b.mu.Lock()
	if lang, ok := b.langs[oldID]; ok {
		b.langs[newID] = lang
		delete(b.langs, oldID)
	}
	b.mu.Unlock()

	for _, l := range b.migrateListeners {
		if err := l.OnChatMigrate(ctx, oldID, newID); err != nil {
			b.Log.Error().Err(err).Int64("old", oldID).Int64("new", newID).Msg("migrate listener failed")
		}
	}
}
