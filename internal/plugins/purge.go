package plugins

import (
	"context"
	"time"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
)

// purgePlugin bulk-deletes message ranges.
type purgePlugin struct {
	bot *bot.Bot
}

func NewPurge(b *bot.Bot) bot.Plugin { return &purgePlugin{bot: b} }

func (p *purgePlugin) Name() string { return "purges" }

func (p *purgePlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "purge", Filter: p.bot.CanDelete(), Handler: p.cmdPurge, HelpKey: "purges-help"},
		{Name: "del", Filter: p.bot.CanDelete(), Handler: p.cmdDel},
	}
}

// cmdPurge deletes everything between the replied message and the command,
// inclusive. Message ids in a chat are sequential, so the id range covers
// exactly that span; ids belonging to already-deleted messages are skipped
// by the transport.
func (p *purgePlugin) cmdPurge(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil {
		_, err := c.ReplyText(ctx, "err-reply-to-message")
		return err
	}

	start := time.Now()
	purged := 0
	for id := reply.MessageID; id <= c.Msg.MessageID; id++ {
		if err := p.bot.Client.DeleteMessage(ctx, c.ChatID(), id); err != nil {
			p.bot.Log.Debug().Err(err).Int("message_id", id).Msg("purge delete failed")
			continue
		}
		purged++
	}

	done, err := c.Respond(ctx, c.Text("purges-done", purged, time.Since(start).Round(time.Millisecond).String()))
	if err != nil {
		return err
	}

	// The confirmation cleans itself up shortly after.
	go func() {
		timer := time.NewTimer(5 * time.Second)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = p.bot.Client.DeleteMessage(context.Background(), done.Chat.ID, done.MessageID)
		case <-ctx.Done():
		}
	}()
	return nil
}

func (p *purgePlugin) cmdDel(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil {
		_, err := c.ReplyText(ctx, "err-reply-to-message")
		return err
	}
	if err := p.bot.Client.DeleteMessage(ctx, c.ChatID(), reply.MessageID); err != nil {
		return err
	}
	return c.DeleteInvocation(ctx)
}
