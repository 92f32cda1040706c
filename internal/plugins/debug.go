package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
)

// debugPlugin holds small diagnostics commands.
type debugPlugin struct {
	bot *bot.Bot
}

func NewDebug(b *bot.Bot) bot.Plugin { return &debugPlugin{bot: b} }

func (p *debugPlugin) Name() string { return "debug" }

func (p *debugPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "ping", Handler: p.cmdPing},
		{Name: "id", Handler: p.cmdID},
		{Name: "json", Filter: p.bot.StaffOnly(), Handler: p.cmdJSON},
	}
}

func (p *debugPlugin) cmdPing(ctx context.Context, c *command.Context) error {
	start := time.Now()
	sent, err := c.Reply(ctx, "Pong!")
	if err != nil {
		return err
	}
	latency := time.Since(start).Round(time.Millisecond)
	return p.bot.Client.EditText(ctx, sent.Chat.ID, sent.MessageID,
		fmt.Sprintf("Pong! `%s`", latency), nil)
}

func (p *debugPlugin) cmdID(ctx context.Context, c *command.Context) error {
	text := fmt.Sprintf("Chat id: `%d`", c.ChatID())
	if c.Msg.From != nil {
		text += fmt.Sprintf("\nYour id: `%d`", c.Msg.From.ID)
	}
	if reply := c.ReplyMsg(); reply != nil && reply.From != nil {
		text += fmt.Sprintf("\nReplied user id: `%d`", reply.From.ID)
	}
	_, err := c.Reply(ctx, text)
	return err
}

// cmdJSON dumps the replied message (or the command itself) for debugging.
func (p *debugPlugin) cmdJSON(ctx context.Context, c *command.Context) error {
	msg := c.Msg
	if reply := c.ReplyMsg(); reply != nil {
		msg = reply
	}

	raw, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}
	if len(raw) > 4000 {
		_, err := p.bot.Client.SendDocumentBytes(ctx, c.ChatID(), "message.json", raw, "", c.Msg.MessageID)
		return err
	}
	_, err = p.bot.Client.SendPlain(ctx, c.ChatID(), string(raw))
	return err
}
