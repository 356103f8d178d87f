package settings

import (
	"encoding/json"
	"time"
)

// Defaults written into a user's row on first access.
const (
	DefaultProvider = "siliconflow"
	DefaultModel    = "Qwen/Qwen2.5-7B-Instruct"
	DefaultLength   = "medium"
	DefaultStyle    = "professional"
	DefaultLanguage = "zh"
)

// Settings matches the ai_settings table schema.
type Settings struct {
	UserID          int64     `json:"user_id"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	DefaultLength   string    `json:"default_length"`
	DefaultStyle    string    `json:"default_style"`
	DefaultLanguage string    `json:"default_language"`
	StreamEnabled   bool      `json:"stream_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Optional carries a value together with whether the caller supplied it.
// A JSON null leaves it unset.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Patch is a partial settings update. Only fields with Set are written.
type Patch struct {
	DefaultLength   Optional[string] `json:"default_length"`
	DefaultStyle    Optional[string] `json:"default_style"`
	DefaultLanguage Optional[string] `json:"default_language"`
	StreamEnabled   Optional[bool]   `json:"stream_enabled"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.DefaultLength.Set && !p.DefaultStyle.Set && !p.DefaultLanguage.Set && !p.StreamEnabled.Set
}

// ValidationError rejects a patch field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
