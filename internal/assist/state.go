package assist

import "log/slog"

type state string

const (
	stateValidating      state = "VALIDATING"
	stateQuotaCheck      state = "QUOTA_CHECK"
	stateSettingsResolve state = "SETTINGS_RESOLVE"
	statePromptBuild     state = "PROMPT_BUILD"
	stateCompleting      state = "COMPLETING"
	stateStreaming       state = "STREAMING"
	stateSanitizing      state = "SANITIZING"
	stateLogging         state = "LOGGING"
	stateDone            state = "DONE"
	stateFailed          state = "FAILED"
)

func (s *Service) enter(inv *Invocation, next state) {
	slog.Debug("assist: state transition",
		"request_id", inv.Request.RequestID,
		"action", inv.Request.Action,
		"from", inv.state,
		"to", next,
	)
	inv.state = next
}
