package settings

// Fallbacks for options neither the request nor the stored row provide.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
	DefaultTopP        = 0.8
)

// RequestOptions are the per-request overrides accepted by the AI endpoints.
type RequestOptions struct {
	Length        string   `json:"length" validate:"omitempty,oneof=short medium long"`
	Style         string   `json:"style" validate:"omitempty,oneof=formal casual professional creative"`
	Language      string   `json:"language" validate:"omitempty,oneof=zh en"`
	StreamEnabled *bool    `json:"streamEnabled"`
	MaxTokens     int      `json:"maxTokens" validate:"omitempty,min=1"`
	Temperature   *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	TopP          *float64 `json:"topP" validate:"omitempty,gt=0,max=1"`
	SaveHistory   *bool    `json:"saveHistory"`
	NoteID        *int64   `json:"noteId"`
}

// Effective is the merged option set used for one completion.
type Effective struct {
	Language      string  `json:"language"`
	Length        string  `json:"length"`
	Style         string  `json:"style"`
	MaxTokens     int     `json:"maxTokens"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
	StreamEnabled bool    `json:"streamEnabled"`
	SaveHistory   bool    `json:"saveHistory"`
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
}

// System holds the deployment-wide fallbacks used when no stored row is available.
type System struct {
	Provider string
	Model    string
	TopP     float64
}

// Resolve merges request > stored > default key by key. stored may be nil.
// tierMax caps MaxTokens when positive.
func Resolve(req RequestOptions, stored *Settings, sys System, tierMax int) Effective {
	eff := Effective{
		Language:      DefaultLanguage,
		Length:        DefaultLength,
		Style:         DefaultStyle,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		StreamEnabled: true,
		SaveHistory:   true,
		Provider:      firstNonEmpty(sys.Provider, DefaultProvider),
		Model:         firstNonEmpty(sys.Model, DefaultModel),
	}
	if sys.TopP > 0 {
		eff.TopP = sys.TopP
	}

	if stored != nil {
		eff.Language = firstNonEmpty(stored.DefaultLanguage, eff.Language)
		eff.Length = firstNonEmpty(stored.DefaultLength, eff.Length)
		eff.Style = firstNonEmpty(stored.DefaultStyle, eff.Style)
		eff.StreamEnabled = stored.StreamEnabled
		eff.Provider = firstNonEmpty(stored.Provider, eff.Provider)
		eff.Model = firstNonEmpty(stored.Model, eff.Model)
	}

	eff.Language = firstNonEmpty(req.Language, eff.Language)
	eff.Length = firstNonEmpty(req.Length, eff.Length)
	eff.Style = firstNonEmpty(req.Style, eff.Style)
	if req.StreamEnabled != nil {
		eff.StreamEnabled = *req.StreamEnabled
	}
	if req.MaxTokens > 0 {
		eff.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		eff.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		eff.TopP = *req.TopP
	}
	if req.SaveHistory != nil {
		eff.SaveHistory = *req.SaveHistory
	}

	if tierMax > 0 && eff.MaxTokens > tierMax {
		eff.MaxTokens = tierMax
	}
	return eff
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
