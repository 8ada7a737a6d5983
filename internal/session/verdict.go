package session

import (
	"strings"
	"unicode"
)

// VerdictKind classifies an evaluation response.
type VerdictKind int

const (
	VerdictCorrect VerdictKind = iota
	VerdictIncorrect
	VerdictMalformed
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	case VerdictMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

const (
	verdictCorrectToken   = "CODE_CORRECT"
	verdictIncorrectToken = "CODE_INCORRECT"
)

// Verdict is the typed result of an evaluation call. For Correct and
// Incorrect, Feedback is the text after the verdict token. Malformed keeps
// the whole raw response as feedback and is handled exactly like Incorrect:
// the curriculum never advances on anything but an exact Correct verdict.
type Verdict struct {
	Kind     VerdictKind
	Feedback string
	Raw      string
}

// ParseVerdict classifies an evaluation response. The verdict token must
// open the response and be whole: it is followed by end-of-text or
// whitespace, so "CODE_CORRECTX" does not pass as correct.
func ParseVerdict(text string) Verdict {
	if feedback, ok := cutVerdictToken(text, verdictIncorrectToken); ok {
		return Verdict{Kind: VerdictIncorrect, Feedback: feedback, Raw: text}
	}
	if feedback, ok := cutVerdictToken(text, verdictCorrectToken); ok {
		return Verdict{Kind: VerdictCorrect, Feedback: feedback, Raw: text}
	}
	return Verdict{Kind: VerdictMalformed, Feedback: text, Raw: text}
}

func cutVerdictToken(text, token string) (string, bool) {
	if !strings.HasPrefix(text, token) {
		return "", false
	}
	rest := text[len(token):]
	if rest == "" {
		return "", true
	}
	r := []rune(rest)[0]
	if !unicode.IsSpace(r) {
		return "", false
	}
	// Drop exactly one newline after the token; otherwise trim leading space.
	if trimmed, ok := strings.CutPrefix(rest, "\n"); ok {
		return trimmed, true
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace), true
}
