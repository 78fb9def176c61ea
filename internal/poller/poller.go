// Package poller is the client-side sync engine: it polls for pending
// notifications on a fixed interval and plays local effects (tone, desktop
// alert, toast, badge) at most once per notification per session.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"shiplog/internal/notify"
)

// Tone names the sound an effect set plays.
type Tone string

const (
	ToneMessage Tone = "message"
	ToneAlert   Tone = "alert"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Effects is the client surface the poller drives. Implementations talk to
// whatever UI shell hosts the session; errors mean "this effect did not
// happen", never "stop polling".
type Effects interface {
	PlayTone(tone Tone) error
	DesktopAlert(title, body string) error
	ShowToast(title, body string) error
	SetBadge(pending int) error
}

// EffectSet is what one category triggers. Zero value triggers nothing.
type EffectSet struct {
	Tone    Tone
	Desktop bool
	Toast   bool
}

// DefaultEffectMap keeps message and alert tones distinct and reserves
// desktop alerts for the intrusive categories.
func DefaultEffectMap() map[notify.Category]EffectSet {
	return map[notify.Category]EffectSet{
		notify.CategoryMessage: {Tone: ToneMessage, Toast: true},
		notify.CategoryAlert:   {Tone: ToneAlert, Desktop: true, Toast: true},
		notify.CategorySuccess: {Tone: ToneSuccess, Toast: true},
		notify.CategoryError:   {Tone: ToneError, Desktop: true, Toast: true},
	}
}

// Source delivers pending notifications and accepts acknowledgements. Backed
// by the HTTP API in real clients and by a store in tests and single-binary
// deployments.
type Source interface {
	Pending(ctx context.Context, limit int) ([]notify.Notification, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
}

// QuietWindow suppresses intrusive effects between Start and End (local
// hours, 0-23). Start == End disables the window; Start > End spans
// midnight.
type QuietWindow struct {
	Start int
	End   int
}

// Contains reports whether t falls inside the window.
func (q QuietWindow) Contains(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	h := t.Hour()
	if q.Start < q.End {
		return h >= q.Start && h < q.End
	}
	return h >= q.Start || h < q.End
}

// Poller owns one session's sync loop. The seen set is session state: a
// notification suppressed by mute or the quiet window is still marked seen,
// so it never plays later in this session.
type Poller struct {
	source  Source
	effects Effects
	logger  *slog.Logger

	interval  time.Duration
	timeout   time.Duration
	pageSize  int
	effectMap map[notify.Category]EffectSet
	quiet     QuietWindow

	muted    atomic.Bool
	inFlight atomic.Bool
	seen     map[uuid.UUID]struct{}

	now func() time.Time
}

type Option func(*Poller)

// WithEffectMap overrides the per-category effect sets.
func WithEffectMap(m map[notify.Category]EffectSet) Option {
	return func(p *Poller) { p.effectMap = m }
}

// WithQuietWindow suppresses intrusive effects during the given local hours.
func WithQuietWindow(q QuietWindow) Option {
	return func(p *Poller) { p.quiet = q }
}

// WithTiming overrides the poll interval and per-poll timeout.
func WithTiming(interval, timeout time.Duration) Option {
	return func(p *Poller) {
		p.interval = interval
		p.timeout = timeout
	}
}

// WithPageSize bounds how many notifications one poll fetches.
func WithPageSize(n int) Option {
	return func(p *Poller) { p.pageSize = n }
}

func New(source Source, effects Effects, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		source:    source,
		effects:   effects,
		logger:    logger,
		interval:  5 * time.Second,
		timeout:   3 * time.Second,
		pageSize:  50,
		effectMap: DefaultEffectMap(),
		seen:      make(map[uuid.UUID]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetMuted toggles mute. Notifications arriving while muted are consumed
// silently and will not replay on unmute.
func (p *Poller) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Run polls until the context is cancelled. The first poll happens
// immediately; a tick that lands while a poll is still in flight is skipped
// rather than queued.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one sync pass. Safe to call concurrently; overlapping calls
// return without polling.
func (p *Poller) Poll(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pending, err := p.source.Pending(ctx, p.pageSize)
	if err != nil {
		p.logger.WarnContext(ctx, "poll failed", "error", err)
		return
	}

	fresh := 0
	for _, n := range pending {
		if _, ok := p.seen[n.ID]; ok {
			continue
		}
		// Seen before effects: a crash mid-effect must not replay the
		// notification later in this session.
		p.seen[n.ID] = struct{}{}
		fresh++

		p.runEffects(n)

		if err := p.source.Acknowledge(ctx, n.ID); err != nil {
			p.logger.WarnContext(ctx, "acknowledge failed", "notification_id", n.ID, "error", err)
		}
	}

	if fresh > 0 || len(pending) == 0 {
		if err := p.effects.SetBadge(len(pending) - fresh); err != nil {
			p.logger.DebugContext(ctx, "badge update failed", "error", err)
		}
	}
}

// runEffects plays the category's effect set. Mute and the quiet window
// suppress the tone and desktop alert; the toast still shows. Effect errors
// are logged and ignored.
func (p *Poller) runEffects(n notify.Notification) {
	set, ok := p.effectMap[n.Category]
	if !ok {
		set = p.effectMap[notify.CategoryMessage]
	}
	suppressed := p.muted.Load() || p.quiet.Contains(p.now())

	if set.Tone != "" && !suppressed {
		if err := p.effects.PlayTone(set.Tone); err != nil {
			p.logger.Debug("tone failed", "tone", set.Tone, "error", err)
		}
	}
	if set.Desktop && !suppressed {
		if err := p.effects.DesktopAlert(n.Title, n.Body); err != nil {
			p.logger.Debug("desktop alert failed", "error", err)
		}
	}
	if set.Toast {
		if err := p.effects.ShowToast(n.Title, n.Body); err != nil {
			p.logger.Debug("toast failed", "error", err)
		}
	}
}
