package session

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
)

// Preferences are the student's display settings. Pure data; setters live on
// the Controller so every change hits the progress store.
type Preferences struct {
	Language         string `json:"language"`
	RegionalLanguage string `json:"regional_language,omitempty"`
	HighlightCode    bool   `json:"highlight_code"`
}

// StudentProgress is the whole persisted state for one (terminal, student)
// pair: grade, private curriculum copy, message history and preferences.
type StudentProgress struct {
	Grade       curriculum.GradeLevel `json:"grade"`
	Curriculum  curriculum.Curriculum `json:"curriculum"`
	History     []ChatMessage         `json:"history"`
	Preferences Preferences           `json:"preferences"`
}

// Clone returns a deep copy.
func (p *StudentProgress) Clone() *StudentProgress {
	out := &StudentProgress{
		Grade:       p.Grade,
		Curriculum:  p.Curriculum.Clone(),
		Preferences: p.Preferences,
	}
	out.History = make([]ChatMessage, len(p.History))
	copy(out.History, p.History)
	for i, m := range p.History {
		if m.Curriculum != nil {
			snapshot := m.Curriculum.Clone()
			out.History[i].Curriculum = &snapshot
		}
	}
	return out
}

const defaultLanguage = "english"

var supportedLanguages = map[string]language.Tag{
	"english": language.English,
	"hindi":   language.Hindi,
	"tamil":   language.Tamil,
	"telugu":  language.Telugu,
	"bengali": language.Bengali,
	"marathi": language.Marathi,
}

// SupportedLanguages lists the preference language codes in stable order.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageName returns the English display name for a supported code.
func LanguageName(code string) (string, error) {
	tag, ok := supportedLanguages[code]
	if !ok {
		return "", fmt.Errorf("unsupported language: %q", code)
	}
	return display.English.Tags().Name(tag), nil
}

func validLanguage(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}
