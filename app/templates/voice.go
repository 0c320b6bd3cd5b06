// Package templates serves a user's confirmed meal templates and matches
// spoken phrases against them.
package templates

import (
	"context"
	"regexp"
	"strings"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
)

var (
	verbPhrase     = regexp.MustCompile(`(?i)^(?:log|took|had|ate|take)\s+(?:(?:my|the)\s+)?(?:(?:usual|regular|normal)\s+)?(.+)$`)
	habitualPhrase = regexp.MustCompile(`(?i)^(?:(?:my|the)\s+(?:(?:usual|regular|normal)\s+)?|(?:usual|regular|normal)\s+)(.+)$`)
	genericSuffix  = regexp.MustCompile(`(?i)\s+(?:routine|stack|combo|meal|supplements?|vitamins?)$`)
)

var stopwords = map[string]bool{
	"my": true, "the": true, "a": true, "an": true, "of": true, "and": true,
	"some": true, "usual": true, "regular": true, "normal": true,
}

type Store interface {
	ListTemplates(ctx context.Context, userID string) ([]models.MealTemplate, error)
}

// Result is the outcome of matching a phrase. Confidence carries the best
// score found even when nothing matched.
type Result struct {
	Matched    bool                 `json:"matched"`
	Template   *models.MealTemplate `json:"template,omitempty"`
	Confidence float64              `json:"confidence"`
	Phrase     string               `json:"phrase,omitempty"`
}

type VoiceMatcher struct {
	store     Store
	threshold float64
}

func NewVoiceMatcher(store Store, cfg config.TemplatesConfig) *VoiceMatcher {
	return &VoiceMatcher{store: store, threshold: cfg.MatchThreshold}
}

// MatchTemplateByVoice finds the user's template that a phrase such as
// "log my usual morning stack" refers to.
func (m *VoiceMatcher) MatchTemplateByVoice(ctx context.Context, transcription, userID string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("template match panicked", zap.Any("panic", r))
			result = Result{}
		}
	}()
	if m.store == nil || strings.TrimSpace(userID) == "" {
		return Result{}
	}
	phrase := textkey.NormalizeKey(ExtractPhrase(transcription))
	if phrase == "" || stopwords[phrase] {
		return Result{}
	}

	templates, err := m.store.ListTemplates(ctx, userID)
	if err != nil {
		common.LogError("template lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Result{Phrase: phrase}
	}

	var best *models.MealTemplate
	bestScore := 0.0
	for i := range templates {
		if score := scoreTemplate(phrase, templates[i]); score > bestScore {
			best, bestScore = &templates[i], score
		}
	}

	result = Result{Confidence: bestScore, Phrase: phrase}
	if best != nil && bestScore >= m.threshold {
		result.Matched = true
		result.Template = best
	}
	return result
}

// ExtractPhrase pulls the template reference out of a spoken command.
func ExtractPhrase(transcription string) string {
	text := strings.TrimSpace(transcription)
	if text == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{verbPhrase, habitualPhrase} {
		if m := re.FindStringSubmatch(text); m != nil {
			return stripSuffix(strings.TrimSpace(m[1]))
		}
	}
	return stripSuffix(text)
}

// stripSuffix drops a trailing generic word ("stack", "vitamins") unless
// nothing meaningful would be left.
func stripSuffix(phrase string) string {
	loc := genericSuffix.FindStringIndex(phrase)
	if loc == nil {
		return phrase
	}
	rest := strings.TrimSpace(phrase[:loc[0]])
	if len(rest) <= 2 || stopwords[strings.ToLower(rest)] {
		return phrase
	}
	return rest
}

func scoreTemplate(phrase string, t models.MealTemplate) float64 {
	key := textkey.NormalizeKey(t.TemplateKey)
	if key == "" {
		key = textkey.NormalizeKey(t.TemplateName)
	}
	name := strings.ToLower(t.TemplateName)
	flatName := textkey.NormalizeKey(t.TemplateName)

	switch {
	case key != "" && phrase == key:
		return 1.0
	case key != "" && strings.Contains(key, phrase):
		return 0.9
	case key != "" && strings.Contains(phrase, key):
		return 0.85
	case name != "" && strings.Contains(name, phrase):
		return 0.8
	case flatName != "" && strings.Contains(phrase, flatName):
		return 0.75
	}
	return partialScore(phrase, key)
}

// partialScore gives 0.5-0.8 for per-word overlap and 0 for none.
func partialScore(phrase, key string) float64 {
	phraseWords := strings.Fields(phrase)
	keyWords := strings.Fields(key)
	if len(phraseWords) == 0 || len(keyWords) == 0 {
		return 0
	}

	matched := 0
	for _, pw := range phraseWords {
		for _, kw := range keyWords {
			if strings.Contains(kw, pw) || strings.Contains(pw, kw) {
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 0
	}
	return 0.5 + 0.3*float64(matched)/float64(max(len(phraseWords), len(keyWords)))
}
