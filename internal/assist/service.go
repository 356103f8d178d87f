// Package assist runs AI text transforms end to end: quota, settings, prompt,
// completion, cleanup and accounting.
package assist

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/completion"
	inats "github.com/JuJa1021101/Vue3-notebook-AI/internal/nats"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/prompt"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/quota"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/sanitize"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/usage"
)

// finishTimeout bounds the accounting work that runs after a response is sent.
const finishTimeout = 10 * time.Second

type Subscriptions interface {
	Subscription(ctx context.Context, userID int64) (tier.Subscription, error)
}

type Quota interface {
	CheckAndConsume(ctx context.Context, userID int64, limits tier.Limits) error
	Usage(ctx context.Context, userID int64) (*quota.Record, error)
}

type Settings interface {
	GetOrCreate(ctx context.Context, userID int64) (*settings.Settings, error)
	Update(ctx context.Context, userID int64, p settings.Patch) error
}

type Completer interface {
	Complete(ctx context.Context, prompt string, opts completion.Options) (*completion.Result, error)
	Stream(ctx context.Context, prompt string, opts completion.Options, onChunk func(string) error) (*completion.Result, error)
}

type Recorder interface {
	Record(ctx context.Context, e usage.Entry)
	SaveHistory(ctx context.Context, h usage.HistoryEntry)
	Stats(ctx context.Context, userID int64) usage.Summary
}

// QuotaEvents is notified of quota rejections. Optional.
type QuotaEvents interface {
	PublishQuotaRejected(ctx context.Context, event inats.QuotaRejectedEvent) error
}

// Sink receives a streamed completion. Exactly one of Done or Fail ends it.
type Sink interface {
	Chunk(text string) error
	Done(tokensUsed int, processingTimeMs int64) error
	Fail(message string) error
}

type Deps struct {
	Subscriptions Subscriptions
	Quota         Quota
	Settings      Settings
	Completer     Completer
	Recorder      Recorder
	QuotaEvents   QuotaEvents
	System        settings.System
}

// Service orchestrates AI invocations.
type Service struct {
	subs     Subscriptions
	quota    Quota
	settings Settings
	llm      Completer
	recorder Recorder
	events   QuotaEvents
	system   settings.System
	now      func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		subs:     d.Subscriptions,
		quota:    d.Quota,
		settings: d.Settings,
		llm:      d.Completer,
		recorder: d.Recorder,
		events:   d.QuotaEvents,
		system:   d.System,
		now:      time.Now,
	}
}

// Invocation is a request that passed validation, quota and prompt building.
type Invocation struct {
	Request   Request
	Limits    tier.Limits
	Effective settings.Effective
	Prompt    string

	start time.Time
	state state
}

// Stream reports whether the invocation should be answered as a stream.
func (inv *Invocation) Stream() bool {
	return inv.Effective.StreamEnabled
}

// Prepare runs every step up to the completion call. A failure has already
// been recorded when it is returned.
func (s *Service) Prepare(ctx context.Context, req Request) (*Invocation, error) {
	inv := &Invocation{Request: req, start: s.now()}
	inv.Effective = settings.Resolve(req.Options, nil, s.system, 0)

	s.enter(inv, stateValidating)
	if err := validate(req); err != nil {
		return nil, s.fail(ctx, inv, mode(inv), err)
	}

	s.enter(inv, stateQuotaCheck)
	inv.Limits = s.limits(ctx, req.UserID)
	if err := s.quota.CheckAndConsume(ctx, req.UserID, inv.Limits); err != nil {
		s.publishRejection(ctx, req.UserID, inv.Limits, err)
		return nil, s.fail(ctx, inv, mode(inv), err)
	}

	s.enter(inv, stateSettingsResolve)
	stored, err := s.settings.GetOrCreate(ctx, req.UserID)
	if err != nil {
		slog.Warn("assist: failed to load settings, using defaults",
			"request_id", req.RequestID, "user_id", req.UserID, "error", err)
		stored = nil
	}
	inv.Effective = settings.Resolve(req.Options, stored, s.system, inv.Limits.MaxTokens)

	s.enter(inv, statePromptBuild)
	inv.Prompt, err = prompt.Build(req.Action, prompt.Params{
		Language: inv.Effective.Language,
		Length:   inv.Effective.Length,
		Style:    inv.Effective.Style,
	}, req.Content)
	if err != nil {
		return nil, s.fail(ctx, inv, mode(inv), err)
	}
	return inv, nil
}

// Run completes inv synchronously.
func (s *Service) Run(ctx context.Context, inv *Invocation) (*Outcome, error) {
	s.enter(inv, stateCompleting)
	res, err := s.llm.Complete(ctx, inv.Prompt, s.completionOptions(inv))
	if err != nil {
		return nil, s.fail(ctx, inv, usage.ModeSync, err)
	}

	s.enter(inv, stateSanitizing)
	text := sanitize.Clean(inv.Request.Action, inv.Request.Content, res.Text)
	elapsed := s.now().Sub(inv.start)

	s.enter(inv, stateLogging)
	s.succeed(ctx, inv, usage.ModeSync, res, text, elapsed)
	s.enter(inv, stateDone)

	return &Outcome{
		Result:         text,
		TokensUsed:     res.TokensUsed,
		ProcessingTime: elapsed.Milliseconds(),
	}, nil
}

// RunStream completes inv, relaying every chunk to sink as it arrives.
// Accounting runs after the terminal frame.
func (s *Service) RunStream(ctx context.Context, inv *Invocation, sink Sink) error {
	s.enter(inv, stateCompleting)
	s.enter(inv, stateStreaming)
	res, err := s.llm.Stream(ctx, inv.Prompt, s.completionOptions(inv), sink.Chunk)
	if err != nil {
		if ferr := sink.Fail(FailureMessage(err)); ferr != nil {
			slog.Debug("assist: could not deliver stream error", "request_id", inv.Request.RequestID, "error", ferr)
		}
		return s.fail(ctx, inv, usage.ModeStream, err)
	}

	elapsed := s.now().Sub(inv.start)
	if derr := sink.Done(res.TokensUsed, elapsed.Milliseconds()); derr != nil {
		slog.Debug("assist: could not deliver stream terminal", "request_id", inv.Request.RequestID, "error", derr)
	}

	s.enter(inv, stateSanitizing)
	text := sanitize.Clean(inv.Request.Action, inv.Request.Content, res.Text)

	s.enter(inv, stateLogging)
	s.succeed(ctx, inv, usage.ModeStream, res, text, elapsed)
	s.enter(inv, stateDone)
	return nil
}

// Stats returns the user's usage and quota position.
func (s *Service) Stats(ctx context.Context, userID int64) *Stats {
	limits := s.limits(ctx, userID)
	summary := s.recorder.Stats(ctx, userID)

	var hourly, daily int
	rec, err := s.quota.Usage(ctx, userID)
	if err != nil {
		slog.Warn("assist: failed to load quota usage", "user_id", userID, "error", err)
	} else if rec != nil {
		hourly, daily = rec.HourlyCount, rec.DailyCount
	}

	return &Stats{
		Today: summary.Today,
		Month: summary.Month,
		RateLimit: RateLimitUsage{
			HourlyCount: hourly,
			DailyCount:  daily,
		},
		Limits:      limits,
		LimitInfo:   tier.FormatLimitInfo(limits, hourly, daily),
		UserTier:    limits.Tier,
		IsUnlimited: limits.IsUnlimited(),
	}
}

// GetSettings returns the user's stored AI settings.
func (s *Service) GetSettings(ctx context.Context, userID int64) (*settings.Settings, error) {
	return s.settings.GetOrCreate(ctx, userID)
}

// UpdateSettings applies a partial settings update.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, p settings.Patch) error {
	return s.settings.Update(ctx, userID, p)
}

func (s *Service) limits(ctx context.Context, userID int64) tier.Limits {
	sub, err := s.subs.Subscription(ctx, userID)
	if err != nil {
		slog.Warn("assist: failed to load subscription, using free tier", "user_id", userID, "error", err)
		return tier.Lookup(tier.Free)
	}
	return tier.Resolve(sub, s.now())
}

func (s *Service) completionOptions(inv *Invocation) completion.Options {
	return completion.Options{
		Model:       inv.Effective.Model,
		MaxTokens:   inv.Effective.MaxTokens,
		Temperature: inv.Effective.Temperature,
		TopP:        inv.Effective.TopP,
	}
}

// accounting detaches ctx from the request so a disconnected client
// cannot cancel its own usage row.
func accounting(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
}

func (s *Service) succeed(ctx context.Context, inv *Invocation, m string, res *completion.Result, text string, elapsed time.Duration) {
	ctx, cancel := accounting(ctx)
	defer cancel()

	req := inv.Request
	model := res.Model
	if model == "" {
		model = inv.Effective.Model
	}
	s.recorder.Record(ctx, usage.Entry{
		UserID:         req.UserID,
		NoteID:         req.Options.NoteID,
		Action:         string(req.Action),
		Mode:           m,
		InputLength:    utf8.RuneCountInString(req.Content),
		OutputLength:   utf8.RuneCountInString(text),
		TokensUsed:     res.TokensUsed,
		Estimated:      res.Estimated,
		Provider:       inv.Effective.Provider,
		Model:          model,
		Success:        true,
		ProcessingTime: elapsed,
	})

	if !inv.Effective.SaveHistory {
		return
	}
	s.recorder.SaveHistory(ctx, usage.HistoryEntry{
		UserID:          req.UserID,
		NoteID:          req.Options.NoteID,
		Action:          string(req.Action),
		OriginalContent: req.Content,
		ResultContent:   text,
		Options:         inv.Effective,
		TokensUsed:      res.TokensUsed,
	})
}

// fail records the failed invocation and returns err unchanged.
func (s *Service) fail(ctx context.Context, inv *Invocation, m string, err error) error {
	req := inv.Request
	slog.Debug("assist: invocation failed",
		"request_id", req.RequestID, "user_id", req.UserID, "action", req.Action,
		"state", inv.state, "error", err)
	inv.state = stateFailed

	ctx, cancel := accounting(ctx)
	defer cancel()
	s.recorder.Record(ctx, usage.Entry{
		UserID:         req.UserID,
		NoteID:         req.Options.NoteID,
		Action:         loggedAction(req.Action),
		Mode:           m,
		InputLength:    utf8.RuneCountInString(req.Content),
		Provider:       inv.Effective.Provider,
		Model:          inv.Effective.Model,
		Success:        false,
		ErrorMessage:   err.Error(),
		ProcessingTime: s.now().Sub(inv.start),
	})
	return err
}

func (s *Service) publishRejection(ctx context.Context, userID int64, limits tier.Limits, err error) {
	var exceeded *quota.ExceededError
	if s.events == nil || !errors.As(err, &exceeded) {
		return
	}
	event := inats.QuotaRejectedEvent{
		UserID:    userID,
		Tier:      string(limits.Tier),
		Window:    string(exceeded.Window),
		Limit:     exceeded.Limit,
		Timestamp: s.now(),
	}
	if perr := s.events.PublishQuotaRejected(ctx, event); perr != nil {
		slog.Warn("assist: failed to publish quota rejection", "user_id", userID, "error", perr)
	}
}

// maxLoggedAction matches ai_usage_logs.action.
const maxLoggedAction = 20

// loggedAction keeps an unknown action from overflowing the action column.
func loggedAction(a prompt.Action) string {
	r := []rune(string(a))
	if len(r) > maxLoggedAction {
		return string(r[:maxLoggedAction])
	}
	return string(r)
}

func mode(inv *Invocation) string {
	if inv.Stream() {
		return usage.ModeStream
	}
	return usage.ModeSync
}

// FailureMessage is the user-facing text for an invocation error.
func FailureMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var qe *quota.ExceededError
	if errors.As(err, &qe) {
		return qe.Error()
	}
	var ce *completion.Error
	if errors.As(err, &ce) {
		if ce.Code == completion.CodeUnauthorized {
			return "AI 服务暂不可用，请联系管理员"
		}
		return ce.Message
	}
	return "AI 处理失败"
}

// Reject records a request that failed before it could be prepared and
// returns err unchanged.
func (s *Service) Reject(ctx context.Context, req Request, err error) error {
	inv := &Invocation{Request: req, start: s.now()}
	inv.Effective = settings.Resolve(req.Options, nil, s.system, 0)
	return s.fail(ctx, inv, mode(inv), err)
}

// Abandon records an invocation that could not be run after Prepare succeeded.
func (s *Service) Abandon(ctx context.Context, inv *Invocation, err error) {
	_ = s.fail(ctx, inv, mode(inv), err)
}
