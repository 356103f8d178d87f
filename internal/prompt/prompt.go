// Package prompt renders the instruction text sent to the completion model.
package prompt

import (
	"fmt"
	"strings"
)

// Params selects the template variant and fills its placeholders.
type Params struct {
	Language string
	Length   string
	Style    string
}

// Build renders the template for action with content inserted verbatim.
func Build(action Action, p Params, content string) (string, error) {
	tmpl, err := template(action, p.Language, p.Length)
	if err != nil {
		return "", err
	}

	// One pass, so placeholders inside content are not expanded.
	r := strings.NewReplacer(
		"{content}", content,
		"{style}", p.Style,
		"{length}", p.Length,
	)
	return r.Replace(tmpl), nil
}

func template(action Action, language, length string) (string, error) {
	byLang, ok := templates[action]
	if !ok {
		return "", fmt.Errorf("unknown action: %s", action)
	}
	v, ok := byLang[language]
	if !ok {
		return "", fmt.Errorf("unsupported language: %s", language)
	}
	if t, ok := v[""]; ok {
		return t, nil
	}
	if t, ok := v[length]; ok {
		return t, nil
	}
	return v["medium"], nil
}
