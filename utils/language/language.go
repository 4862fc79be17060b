// Package language normalizes the free-form language values users submit
// (BCP 47 tags, English names, or loose aliases) to the closest supported
// catalog language.
package language

import (
	"strings"

	"golang.org/x/text/language"
)

// nameAliases maps common language names to BCP 47 tags for inputs that
// language.Parse cannot handle.
var nameAliases = map[string]string{
	"english":    "en",
	"hindi":      "hi",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"japanese":   "ja",
	"chinese":    "zh",
	"mandarin":   "zh",
	"korean":     "ko",
	"arabic":     "ar",
	"tamil":      "ta",
	"telugu":     "te",
	"kannada":    "kn",
	"malayalam":  "ml",
	"marathi":    "mr",
	"bengali":    "bn",
	"gujarati":   "gu",
	"punjabi":    "pa",
	"urdu":       "ur",
}

// Matcher resolves requested languages against the supported set.
type Matcher struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewMatcher builds a matcher over the supported language tags. Tags that
// do not parse are skipped; the first supported tag is the fallback.
func NewMatcher(supported []string) *Matcher {
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return &Matcher{
		supported: tags,
		matcher:   language.NewMatcher(tags),
	}
}

// Normalize converts any recognizable language value to the canonical tag
// of the closest supported language. The second return is false when the
// input could not be identified at all.
func (m *Matcher) Normalize(lang string) (string, bool) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", false
	}

	if alias, ok := nameAliases[strings.ToLower(lang)]; ok {
		lang = alias
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return "", false
	}

	_, index, confidence := m.matcher.Match(tag)
	if confidence == language.No {
		return "", false
	}
	return m.supported[index].String(), true
}

// Default returns the fallback language tag.
func (m *Matcher) Default() string {
	return m.supported[0].String()
}
