// Package spampredict scores message text for spam likelihood using a hosted
// language model.
package spampredict

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/userbotindo/anjani/internal/config"
)

// Classifier scores text between 0 (ham) and 1 (spam).
type Classifier interface {
	Name() string
	Score(ctx context.Context, text string) (float64, error)
}

const prompt = "You are a spam classifier for Telegram group messages. " +
	"Reply with only a number between 0.0 and 1.0, the probability that the " +
	"following message is spam (scams, unsolicited ads, phishing, crypto " +
	"shilling). Message:\n\n"

// New picks a provider by configured key, preferring OpenAI.
func New(cfg config.SpamPredictConfig) Classifier {
	if cfg.OpenAIKey != "" {
		return newOpenAI(cfg)
	}
	return newGemini(cfg)
}

// truncate clips text to maxTokens before it hits the provider. Counting
// with cl100k_base is close enough for both backends.
func truncate(text string, maxTokens int) string {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// Fall back to a crude byte clip.
		if len(text) > maxTokens*4 {
			return text[:maxTokens*4]
		}
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// parseScore extracts the probability from a model reply, tolerating stray
// prose around the number.
func parseScore(reply string) (float64, bool) {
	for _, field := range strings.Fields(strings.TrimSpace(reply)) {
		field = strings.Trim(field, ".,;:")
		if v, err := strconv.ParseFloat(field, 64); err == nil && v >= 0 && v <= 1 {
			return v, true
		}
	}
	return 0, false
}
