package assist

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/prompt"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
)

// Content bounds, in characters.
const (
	MaxContentLength   = 10000
	MinSummarizeLength = 100
)

// Request is one inbound AI invocation.
type Request struct {
	RequestID string
	UserID    int64
	Action    prompt.Action
	Content   string
	Options   settings.RequestOptions
}

// Outcome is the result of a synchronous invocation.
type Outcome struct {
	Result         string `json:"result"`
	TokensUsed     int    `json:"tokensUsed"`
	ProcessingTime int64  `json:"processingTime"`
}

// ValidationError rejects a request before any work is done.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrMalformedBody is recorded when the request body cannot be decoded.
var ErrMalformedBody = &ValidationError{Message: "请求格式错误"}

var optionsValidator = validator.New()

func validate(req Request) error {
	action, content := req.Action, req.Content
	if !action.Valid() {
		return &ValidationError{Message: fmt.Sprintf("不支持的操作类型: %s", action)}
	}
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return &ValidationError{Message: "内容不能为空"}
	}
	if action == prompt.Summarize && n < MinSummarizeLength {
		return &ValidationError{Message: fmt.Sprintf("内容太短，至少需要 %d 个字符", MinSummarizeLength)}
	}
	if n > MaxContentLength {
		return &ValidationError{Message: fmt.Sprintf("内容过长，请控制在 %d 字以内", MaxContentLength)}
	}
	if err := optionsValidator.Struct(req.Options); err != nil {
		return &ValidationError{Message: optionsMessage(err)}
	}
	return nil
}

var optionMessages = map[string]string{
	"Length":      "无效的长度设置",
	"Style":       "无效的风格设置",
	"Language":    "无效的语言设置",
	"MaxTokens":   "maxTokens 必须为正整数",
	"Temperature": "temperature 必须在 0 到 2 之间",
	"TopP":        "topP 必须在 0 到 1 之间",
}

func optionsMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := optionMessages[verrs[0].Field()]; ok {
			return msg
		}
	}
	return "请求参数无效"
}
