package session

import "strings"

// Control tokens the model may embed in its replies. ShowActions is an
// instruction and gets stripped from display text; CurriculumMap is a
// placement marker the renderer substitutes in place, so it stays.
const (
	TokenShowActions   = "[SHOW_ACTIONS]"
	TokenCurriculumMap = "[CURRICULUM_MAP]"
)

// ParsedReply is a model reply with its control tokens lifted out.
type ParsedReply struct {
	DisplayText      string
	ShowActions      bool
	HasCurriculumMap bool
}

// ParseReply scans a model reply for control tokens. Tokens are literal
// substrings, recognized anywhere in the text.
func ParseReply(text string) ParsedReply {
	parsed := ParsedReply{DisplayText: text}
	if strings.Contains(text, TokenShowActions) {
		parsed.ShowActions = true
		parsed.DisplayText = strings.TrimSpace(strings.ReplaceAll(parsed.DisplayText, TokenShowActions, ""))
	}
	parsed.HasCurriculumMap = strings.Contains(text, TokenCurriculumMap)
	return parsed
}
