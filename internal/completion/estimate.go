package completion

import "unicode/utf8"

// estimateTokens approximates token count at two characters per token.
// Used only when the upstream omits usage.
func estimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 1) / 2
}
