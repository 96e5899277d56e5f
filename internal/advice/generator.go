package advice

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

const (
	systemPrompt = "You are a supportive mental health professional who gives actionable tips."

	instructions = "Given these entries, please provide a short, encouraging piece of weekly advice " +
		"focused on mental health and well-being. The advice should be empathetic, " +
		"supportive, and actionable, guiding the user on how to approach the coming week."

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 250
	DefaultTimeout     = 45 * time.Second
)

// Generator maps one user's window of posts to advice text. It never returns
// an error: every backend failure becomes "no output".
type Generator struct {
	backend     Backend
	timeout     time.Duration
	temperature float64
	maxTokens   int
	policy      *bluemonday.Policy
}

// NewGenerator wraps backend with a per-call timeout.
func NewGenerator(backend Backend, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		backend:     backend,
		timeout:     timeout,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Generate returns the advice text and true, or "" and false when there is
// nothing usable to persist.
func (g *Generator) Generate(ctx context.Context, posts []models.Post) (string, bool) {
	if len(posts) == 0 {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.backend.Complete(ctx, g.BuildPrompt(posts))
	if err != nil {
		logger.Warn("advice generation failed",
			zap.Int64("user_id", posts[0].UserID),
			zap.Int("posts", len(posts)),
			zap.Error(err),
		)
		return "", false
	}

	// Strip any markup, keep the text readable as plain text.
	text := strings.TrimSpace(html.UnescapeString(g.policy.Sanitize(raw)))
	if text == "" {
		logger.Warn("advice generation returned empty text", zap.Int64("user_id", posts[0].UserID))
		return "", false
	}
	return text, true
}

// BuildPrompt renders posts, oldest first, into a chat prompt.
func (g *Generator) BuildPrompt(posts []models.Post) Prompt {
	var b strings.Builder
	b.WriteString("The user had the following posts this week:\n\n")
	for _, p := range posts {
		content := strings.TrimSpace(p.Content)
		if content == "" {
			continue
		}
		emotion, score := p.Emotions.Dominant()
		fmt.Fprintf(&b, "- %s (mostly %s, %.2f)\n", content, emotion, score)
	}
	b.WriteString("\n")
	b.WriteString(instructions)

	return Prompt{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
}
