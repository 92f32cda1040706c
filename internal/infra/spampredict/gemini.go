package spampredict

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/userbotindo/anjani/internal/config"
)

type geminiClassifier struct {
	apiKey    string
	model     string
	maxTokens int

	once   sync.Once
	client *genai.Client
	initErr error
}

var _ Classifier = (*geminiClassifier)(nil)

func newGemini(cfg config.SpamPredictConfig) *geminiClassifier {
	model := cfg.Model
	if model == "" || model == "gpt-4o-mini" {
		model = "gemini-2.0-flash"
	}
	return &geminiClassifier{
		apiKey:    cfg.GeminiKey,
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

func (g *geminiClassifier) Name() string { return "gemini" }

// init builds the client lazily since genai wants a context.
func (g *geminiClassifier) init(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

func (g *geminiClassifier) Score(ctx context.Context, text string) (float64, error) {
	if err := g.init(ctx); err != nil {
		return 0, fmt.Errorf("gemini client: %w", err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt+truncate(text, g.maxTokens)), nil)
	if err != nil {
		return 0, fmt.Errorf("gemini generate: %w", err)
	}

	score, ok := parseScore(resp.Text())
	if !ok {
		return 0, fmt.Errorf("gemini generate: unparsable reply %q", resp.Text())
	}
	return score, nil
}
