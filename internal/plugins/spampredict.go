package plugins

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/spampredict"
	"github.com/userbotindo/anjani/internal/util"
)

// spamPredictPlugin scores group messages with a language model and removes
// the ones over the configured threshold. Loaded only when a provider key is
// configured.
type spamPredictPlugin struct {
	bot        *bot.Bot
	classifier spampredict.Classifier
}

var _ bot.MessageListener = (*spamPredictPlugin)(nil)

func NewSpamPredict(b *bot.Bot, classifier spampredict.Classifier) bot.Plugin {
	return &spamPredictPlugin{bot: b, classifier: classifier}
}

func (p *spamPredictPlugin) Name() string { return "spam_predict" }

func (p *spamPredictPlugin) ListenPriority() int { return 30 }

func (p *spamPredictPlugin) Commands() []command.Spec {
	return []command.Spec{
		{Name: "predict", Filter: p.bot.StaffOnly(), Handler: p.cmdPredict},
	}
}

// cmdPredict reports the score of a replied message without acting on it.
func (p *spamPredictPlugin) cmdPredict(ctx context.Context, c *command.Context) error {
	reply := c.ReplyMsg()
	if reply == nil || reply.Text == "" {
		_, err := c.ReplyText(ctx, "err-reply-to-message")
		return err
	}

	score, err := p.classifier.Score(ctx, reply.Text)
	if err != nil {
		return err
	}
	_, err = c.Reply(ctx, fmt.Sprintf("`%s`: %.3f", p.classifier.Name(), score))
	return err
}

func (p *spamPredictPlugin) OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if msg.Chat.IsPrivate() || msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return false, nil
	}
	// Short messages are not worth a model round trip.
	if len(msg.Text) < 48 {
		return false, nil
	}

	// Only chats that opted into shielding get predictions too.
	active, err := p.bot.DB.Gban.IsActive(ctx, msg.Chat.ID)
	if err != nil || !active {
		return false, err
	}

	// Admins are exempt.
	if isAdmin, err := p.bot.Client.IsAdmin(ctx, msg.Chat.ID, msg.From.ID); err == nil && isAdmin {
		return false, nil
	}

	score, err := p.classifier.Score(ctx, msg.Text)
	if err != nil {
		p.bot.Log.Warn().Err(err).Str("provider", p.classifier.Name()).Msg("prediction failed")
		return false, nil
	}

	threshold := p.bot.Config.SpamPredict.Threshold
	if score < threshold {
		metrics.IncSpamVerdict("predict", "clean")
		return false, nil
	}
	metrics.IncSpamVerdict("predict", "spam")

	if err := p.bot.Client.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		return false, err
	}
	if err := p.bot.DB.Users.AdjustReputation(ctx, msg.From.ID, -1); err != nil {
		p.bot.Log.Warn().Err(err).Msg("reputation adjust failed")
	}

	p.bot.SendLog(ctx, fmt.Sprintf(
		"#SPAM_PREDICTION\nScore: %.3f\nUser: %s (`%d`)\nChat: %s (`%d`)",
		score, util.EscapeMarkdown(util.FullName(msg.From.FirstName, msg.From.LastName)),
		msg.From.ID, util.EscapeMarkdown(msg.Chat.Title), msg.Chat.ID))
	return true, nil
}
