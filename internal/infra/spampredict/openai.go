package spampredict

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/userbotindo/anjani/internal/config"
)

type openAIClassifier struct {
	client    openai.Client
	model     string
	maxTokens int
}

var _ Classifier = (*openAIClassifier)(nil)

func newOpenAI(cfg config.SpamPredictConfig) *openAIClassifier {
	return &openAIClassifier{
		client:    openai.NewClient(option.WithAPIKey(cfg.OpenAIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (o *openAIClassifier) Name() string { return "openai" }

func (o *openAIClassifier) Score(ctx context.Context, text string) (float64, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt + truncate(text, o.maxTokens)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("openai completion: empty response")
	}

	score, ok := parseScore(resp.Choices[0].Message.Content)
	if !ok {
		return 0, fmt.Errorf("openai completion: unparsable reply %q", resp.Choices[0].Message.Content)
	}
	return score, nil
}
