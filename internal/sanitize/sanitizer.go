// Package sanitize removes echoed input and conversational filler from model output.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/prompt"
)

// echoWindow bounds how far into the result an echoed original may start.
const echoWindow = 50

// Clean applies echo trimming (for actions that tend to echo) and then boilerplate stripping.
func Clean(action prompt.Action, original, result string) string {
	if action.EchoesInput() {
		result = TrimEcho(original, result)
	}
	return StripBoilerplate(result)
}

// TrimEcho removes a copy of original from the head of result.
func TrimEcho(original, result string) string {
	orig := strings.TrimSpace(original)
	res := strings.TrimSpace(result)
	if orig == "" {
		return result
	}

	if strings.HasPrefix(res, orig) {
		return stripLeading(res[len(orig):])
	}

	idx := strings.Index(res, orig)
	if idx >= 0 && utf8.RuneCountInString(res[:idx]) < echoWindow {
		return stripLeading(res[idx+len(orig):])
	}
	return result
}

func stripLeading(s string) string {
	return leadingPunct.ReplaceAllString(strings.TrimSpace(s), "")
}

// StripBoilerplate removes at most one prefix match and one suffix match.
func StripBoilerplate(result string) string {
	out := result
	for _, r := range PrefixRules {
		if loc := r.Pattern.FindStringIndex(out); loc != nil {
			out = strings.TrimSpace(out[loc[1]:])
			break
		}
	}
	for _, r := range SuffixRules {
		if loc := r.Pattern.FindStringIndex(out); loc != nil {
			out = strings.TrimSpace(out[:loc[0]])
			break
		}
	}
	return out
}
