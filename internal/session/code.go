package session

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	runMarkerRe = regexp.MustCompile(`//\s*run`)
	langTagRe   = regexp.MustCompile("^```[a-zA-Z0-9+#-]*\n?")
)

// HasRunnableCode reports whether a message carries both a fenced code block
// and the literal run marker, the student's "execute this" request.
func HasRunnableCode(text string) bool {
	return codeBlockRe.MatchString(text) && runMarkerRe.MatchString(text)
}

// ExtractCode returns the content of the first fenced block with the fence,
// language tag and run marker stripped.
func ExtractCode(text string) string {
	block := codeBlockRe.FindString(text)
	if block == "" {
		return ""
	}
	block = langTagRe.ReplaceAllString(block, "")
	block = strings.TrimSuffix(block, "```")
	block = runMarkerRe.ReplaceAllString(block, "")
	return strings.TrimSpace(block)
}
