package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// Base lexicon per emotion. Entries are matched after the same cleaning as
// the input, so "soooo haaappy" still hits "happy".
var emotionLexicon = map[string][]string{
	models.EmotionAnger: {
		"angry", "furious", "mad", "rage", "annoyed", "irritated", "hate",
		"frustrated", "pissed", "resent", "fed up",
	},
	models.EmotionDisgust: {
		"disgusted", "gross", "sick of", "revolting", "nasty", "awful", "yuck",
	},
	models.EmotionFear: {
		"afraid", "scared", "anxious", "worried", "nervous", "panic", "terrified",
		"stress", "stressed", "deadline", "deadlines", "dread", "overwhelmed",
	},
	models.EmotionJoy: {
		"happy", "glad", "great", "good", "better", "love", "excited", "fun",
		"grateful", "proud", "relaxed", "calm", "enjoyed", "laughed",
	},
	models.EmotionSadness: {
		"sad", "down", "lonely", "cry", "cried", "tired", "hopeless", "miss",
		"empty", "depressed", "hurt", "rough", "lost",
	},
	models.EmotionSurprise: {
		"surprised", "unexpected", "shocked", "suddenly", "wow", "amazed",
		"out of nowhere",
	},
}

var spaceRegex = regexp.MustCompile(`\s+`)

// CleanText lowercases, keeps only letters, collapses repeated letters and
// normalizes whitespace.
func CleanText(text string) string {
	cleaned := strings.ToLower(text)

	var builder strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	cleaned = collapseRepeats(builder.String())

	cleaned = spaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// collapseRepeats reduces runs of the same letter to one: "soooo" -> "so".
// Spaces are kept.
func collapseRepeats(text string) string {
	if len(text) == 0 {
		return text
	}

	var result strings.Builder
	lastChar := rune(0)
	lastWasLetter := false

	for _, char := range text {
		isLetter := unicode.IsLetter(char)
		if isLetter && lastWasLetter && char == lastChar {
			continue
		}
		result.WriteRune(char)
		lastChar = char
		lastWasLetter = isLetter
	}

	return result.String()
}

// EmotionScorer assigns the seven emotion scores to a post.
type EmotionScorer interface {
	Score(content string) models.EmotionScores
}

// LexiconScorer scores by counting lexicon hits per emotion. Scores are each
// emotion's share of all hits; text with no hits is fully neutral.
type LexiconScorer struct {
	words   map[string]string   // cleaned single word -> emotion
	phrases map[string][]string // emotion -> cleaned multi-word phrases
}

func NewLexiconScorer() *LexiconScorer {
	s := &LexiconScorer{
		words:   map[string]string{},
		phrases: map[string][]string{},
	}
	for emotion, entries := range emotionLexicon {
		for _, e := range entries {
			c := CleanText(e)
			if strings.Contains(c, " ") {
				s.phrases[emotion] = append(s.phrases[emotion], c)
			} else {
				s.words[c] = emotion
			}
		}
	}
	return s
}

func (s *LexiconScorer) Score(content string) models.EmotionScores {
	cleaned := CleanText(content)

	hits := map[string]int{}
	total := 0
	for _, w := range strings.Fields(cleaned) {
		if emotion, ok := s.words[w]; ok {
			hits[emotion]++
			total++
		}
	}
	// Pad so phrases only match on word boundaries.
	padded := " " + cleaned + " "
	for emotion, phrases := range s.phrases {
		for _, p := range phrases {
			if n := strings.Count(padded, " "+p+" "); n > 0 {
				hits[emotion] += n
				total += n
			}
		}
	}

	if total == 0 {
		return models.EmotionScores{Neutral: 1}
	}
	scores := models.EmotionScores{
		Anger:    float64(hits[models.EmotionAnger]) / float64(total),
		Disgust:  float64(hits[models.EmotionDisgust]) / float64(total),
		Fear:     float64(hits[models.EmotionFear]) / float64(total),
		Joy:      float64(hits[models.EmotionJoy]) / float64(total),
		Sadness:  float64(hits[models.EmotionSadness]) / float64(total),
		Surprise: float64(hits[models.EmotionSurprise]) / float64(total),
	}
	return scores.Clamp()
}
