package settings

import "github.com/go-playground/validator/v10"

var validate = validator.New()

type fieldRule struct {
	field   string
	value   func(Patch) (string, bool)
	tag     string
	message string
}

var patchRules = []fieldRule{
	{
		field:   "default_length",
		value:   func(p Patch) (string, bool) { return p.DefaultLength.Value, p.DefaultLength.Set },
		tag:     "oneof=short medium long",
		message: "无效的长度设置",
	},
	{
		field:   "default_style",
		value:   func(p Patch) (string, bool) { return p.DefaultStyle.Value, p.DefaultStyle.Set },
		tag:     "oneof=formal casual professional creative",
		message: "无效的风格设置",
	},
	{
		field:   "default_language",
		value:   func(p Patch) (string, bool) { return p.DefaultLanguage.Value, p.DefaultLanguage.Set },
		tag:     "oneof=zh en",
		message: "无效的语言设置",
	},
}

// Validate checks every present field; the first invalid one is reported.
func (p Patch) Validate() error {
	for _, r := range patchRules {
		v, ok := r.value(p)
		if !ok {
			continue
		}
		if err := validate.Var(v, "required,"+r.tag); err != nil {
			return &ValidationError{Field: r.field, Message: r.message}
		}
	}
	return nil
}
