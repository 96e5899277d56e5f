package models

import (
	"time"
)

// Emotion names, in the order they are stored.
const (
	EmotionAnger    = "anger"
	EmotionDisgust  = "disgust"
	EmotionFear     = "fear"
	EmotionJoy      = "joy"
	EmotionNeutral  = "neutral"
	EmotionSadness  = "sadness"
	EmotionSurprise = "surprise"
)

// EmotionNames lists every scored emotion.
var EmotionNames = []string{
	EmotionAnger,
	EmotionDisgust,
	EmotionFear,
	EmotionJoy,
	EmotionNeutral,
	EmotionSadness,
	EmotionSurprise,
}

// EmotionScores holds independent scores in [0,1]; they need not sum to 1.
type EmotionScores struct {
	Anger    float64 `json:"anger"`
	Disgust  float64 `json:"disgust"`
	Fear     float64 `json:"fear"`
	Joy      float64 `json:"joy"`
	Neutral  float64 `json:"neutral"`
	Sadness  float64 `json:"sadness"`
	Surprise float64 `json:"surprise"`
}

// Get returns the score for a named emotion, 0 for unknown names.
func (e EmotionScores) Get(name string) float64 {
	switch name {
	case EmotionAnger:
		return e.Anger
	case EmotionDisgust:
		return e.Disgust
	case EmotionFear:
		return e.Fear
	case EmotionJoy:
		return e.Joy
	case EmotionNeutral:
		return e.Neutral
	case EmotionSadness:
		return e.Sadness
	case EmotionSurprise:
		return e.Surprise
	}
	return 0
}

// Dominant returns the highest-scoring emotion. Ties go to the earlier name
// in EmotionNames.
func (e EmotionScores) Dominant() (string, float64) {
	best, bestScore := EmotionNeutral, -1.0
	for _, name := range EmotionNames {
		if s := e.Get(name); s > bestScore {
			best, bestScore = name, s
		}
	}
	return best, bestScore
}

// Clamp forces every score into [0,1].
func (e EmotionScores) Clamp() EmotionScores {
	c := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return EmotionScores{
		Anger:    c(e.Anger),
		Disgust:  c(e.Disgust),
		Fear:     c(e.Fear),
		Joy:      c(e.Joy),
		Neutral:  c(e.Neutral),
		Sadness:  c(e.Sadness),
		Surprise: c(e.Surprise),
	}
}

// Post is a journal entry owned by exactly one user.
type Post struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	Content   string        `json:"content"`
	Emotions  EmotionScores `json:"emotions"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
