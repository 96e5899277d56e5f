// Package advice turns a user's week of journal posts into generated advice.
package advice

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks github.com/AnshRaj112/serenify-journal/internal/advice Backend

import (
	"context"
)

// Message is one chat turn sent to the text-generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full request handed to a Backend.
type Prompt struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Backend is an external text-generation capability. Implementations make a
// network call and must honor ctx cancellation.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
