package assist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/completion"
	inats "github.com/JuJa1021101/Vue3-notebook-AI/internal/nats"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/quota"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/tier"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/usage"
)

type fakeSubs struct {
	sub tier.Subscription
	err error
}

func (f *fakeSubs) Subscription(context.Context, int64) (tier.Subscription, error) {
	return f.sub, f.err
}

// fakeQuota enforces the hourly window only.
type fakeQuota struct {
	mu     sync.Mutex
	hourly map[int64]int
	calls  int
}

func newFakeQuota() *fakeQuota {
	return &fakeQuota{hourly: make(map[int64]int)}
}

func (f *fakeQuota) CheckAndConsume(_ context.Context, userID int64, limits tier.Limits) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if limits.IsUnlimited() {
		return nil
	}
	if f.hourly[userID] >= limits.Hourly {
		return &quota.ExceededError{Window: quota.Hourly, Limit: limits.Hourly}
	}
	f.hourly[userID]++
	return nil
}

func (f *fakeQuota) Usage(_ context.Context, userID int64) (*quota.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.hourly[userID]
	return &quota.Record{UserID: userID, HourlyCount: n, DailyCount: n}, nil
}

type fakeSettings struct {
	stored  *settings.Settings
	err     error
	patches []settings.Patch
}

func (f *fakeSettings) GetOrCreate(_ context.Context, userID int64) (*settings.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stored == nil {
		return &settings.Settings{
			UserID:          userID,
			Provider:        settings.DefaultProvider,
			Model:           settings.DefaultModel,
			DefaultLength:   settings.DefaultLength,
			DefaultStyle:    settings.DefaultStyle,
			DefaultLanguage: settings.DefaultLanguage,
			StreamEnabled:   false,
		}, nil
	}
	cp := *f.stored
	return &cp, nil
}

func (f *fakeSettings) Update(_ context.Context, _ int64, p settings.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.patches = append(f.patches, p)
	return nil
}

// fakeCompleter replays chunks, then fails with err if set.
type fakeCompleter struct {
	chunks []string
	err    error
	usage  int

	prompts []string
	opts    []completion.Options
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts completion.Options) (*completion.Result, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &completion.Result{Text: strings.Join(f.chunks, ""), TokensUsed: f.usage, Model: opts.Model}, nil
}

func (f *fakeCompleter) Stream(_ context.Context, prompt string, opts completion.Options, onChunk func(string) error) (*completion.Result, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	var sb strings.Builder
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return nil, err
		}
		sb.WriteString(c)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &completion.Result{Text: sb.String(), TokensUsed: f.usage, Model: opts.Model}, nil
}

// fakeRecorder keeps every write along with the state of the context it
// arrived on.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []usage.Entry
	history []usage.HistoryEntry
	ctxErrs []error
	summary usage.Summary
}

func (f *fakeRecorder) Record(ctx context.Context, e usage.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
}

func (f *fakeRecorder) SaveHistory(ctx context.Context, h usage.HistoryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, h)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
}

func (f *fakeRecorder) Stats(context.Context, int64) usage.Summary {
	return f.summary
}

type fakeEvents struct {
	events []inats.QuotaRejectedEvent
}

func (f *fakeEvents) PublishQuotaRejected(_ context.Context, e inats.QuotaRejectedEvent) error {
	f.events = append(f.events, e)
	return nil
}

// fakeSink collects stream frames in order.
type fakeSink struct {
	chunks   []string
	done     bool
	tokens   int
	failures []string
	gone     bool
}

var errSinkGone = errors.New("sink gone")

func (f *fakeSink) Chunk(text string) error {
	if f.gone {
		return errSinkGone
	}
	f.chunks = append(f.chunks, text)
	return nil
}

func (f *fakeSink) Done(tokens int, _ int64) error {
	f.done = true
	f.tokens = tokens
	return nil
}

func (f *fakeSink) Fail(msg string) error {
	f.failures = append(f.failures, msg)
	return nil
}

type fixture struct {
	svc      *Service
	subs     *fakeSubs
	quota    *fakeQuota
	settings *fakeSettings
	llm      *fakeCompleter
	recorder *fakeRecorder
	events   *fakeEvents
}

func newFixture(chunks ...string) *fixture {
	f := &fixture{
		subs:     &fakeSubs{},
		quota:    newFakeQuota(),
		settings: &fakeSettings{},
		llm:      &fakeCompleter{chunks: chunks, usage: 42},
		recorder: &fakeRecorder{},
		events:   &fakeEvents{},
	}
	f.svc = NewService(Deps{
		Subscriptions: f.subs,
		Quota:         f.quota,
		Settings:      f.settings,
		Completer:     f.llm,
		Recorder:      f.recorder,
		QuotaEvents:   f.events,
		System:        settings.System{Provider: "siliconflow", Model: "Qwen/Qwen2.5-7B-Instruct"},
	})
	return f
}
