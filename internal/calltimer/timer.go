// Package calltimer is the call-session stopwatch: running, paused and
// stopped states, persisted after every transition so a reloaded widget
// resumes from the same elapsed value.
package calltimer

import (
	"context"
	"strings"
	"sync"
	"time"

	"parishfund/server/internal/apperror"
)

// DefaultRefreshInterval is how often a running timer re-renders
const DefaultRefreshInterval = time.Second

// Config identifies the session and carries the display-only info panel
type Config struct {
	SessionID    string `json:"sessionId"`
	DonorName    string `json:"donorName"`
	DonorPhone   string `json:"donorPhone"`
	PledgeAmount string `json:"pledgeAmount"`
	PledgeDate   string `json:"pledgeDate"`
	Registrar    string `json:"registrar"`
	Church       string `json:"church"`
}

// Clock supplies wall-clock time
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Renderer displays the timer. It is called from the refresh goroutine.
type Renderer interface {
	Render(elapsed time.Duration, status Status)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(elapsed time.Duration, status Status)

func (f RendererFunc) Render(elapsed time.Duration, status Status) { f(elapsed, status) }

type Option func(*Timer)

func WithClock(c Clock) Option { return func(t *Timer) { t.clock = c } }

func WithRenderer(r Renderer) Option { return func(t *Timer) { t.renderer = r } }

func WithRefreshInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// Timer is owned by a single widget. Invalid transitions are no-ops.
type Timer struct {
	cfg      Config
	store    Storage
	clock    Clock
	renderer Renderer
	interval time.Duration

	mu    sync.Mutex
	state Snapshot

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// Attach restores the session's timer from store. With nothing stored the
// timer starts immediately; a stored running timer resumes ticking; a stored
// paused timer shows its frozen value.
func Attach(ctx context.Context, cfg Config, store Storage, opts ...Option) (*Timer, error) {
	cfg.SessionID = strings.TrimSpace(cfg.SessionID)
	if cfg.SessionID == "" {
		return nil, apperror.ErrInvalidSessionID
	}

	t := &Timer{
		cfg:      cfg,
		store:    store,
		clock:    SystemClock{},
		interval: DefaultRefreshInterval,
		state:    StoppedSnapshot(),
	}
	for _, opt := range opts {
		opt(t)
	}

	snap, found, err := store.Load(ctx, cfg.SessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := t.Start(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	t.state = snap.clone()
	switch snap.Status {
	case StatusRunning:
		t.startLoop()
		t.render()
	case StatusPaused:
		t.render()
	}
	return t, nil
}

// Info returns the display-only session details
func (t *Timer) Info() Config {
	return t.cfg
}

// SessionID returns the session the timer belongs to
func (t *Timer) SessionID() string {
	return t.cfg.SessionID
}

// Status returns the current state
func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Status
}

// Snapshot returns a copy of the persisted state
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

// Elapsed is safe to call at any frequency; it never accumulates ticks
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ElapsedAt(t.clock.Now())
}

// Start begins timing from zero. No-op unless stopped.
func (t *Timer) Start(ctx context.Context) error {
	changed, err := t.transition(ctx, StatusStopped, func(now time.Time, cur Snapshot) Snapshot {
		return Snapshot{Status: StatusRunning, StartTime: millis(now)}
	})
	if err != nil || !changed {
		return err
	}
	t.startLoop()
	t.render()
	return nil
}

// Pause closes the open segment and freezes the display. No-op unless running.
func (t *Timer) Pause(ctx context.Context) error {
	changed, err := t.transition(ctx, StatusRunning, func(now time.Time, cur Snapshot) Snapshot {
		return Snapshot{
			Status:          StatusPaused,
			AccumulatedTime: cur.ElapsedAt(now).Milliseconds(),
			LastPauseTime:   millis(now),
		}
	})
	if err != nil || !changed {
		return err
	}
	t.stopLoop()
	t.render()
	return nil
}

// Resume opens a new segment. No-op unless paused.
func (t *Timer) Resume(ctx context.Context) error {
	changed, err := t.transition(ctx, StatusPaused, func(now time.Time, cur Snapshot) Snapshot {
		return Snapshot{
			Status:          StatusRunning,
			StartTime:       millis(now),
			AccumulatedTime: cur.AccumulatedTime,
		}
	})
	if err != nil || !changed {
		return err
	}
	t.startLoop()
	t.render()
	return nil
}

// Close halts the refresh loop. Persisted state is left as is.
func (t *Timer) Close() {
	t.stopLoop()
}

// transition applies next when the timer is in from. The new state is
// persisted before it becomes visible; a failed save leaves the old state.
func (t *Timer) transition(ctx context.Context, from Status, next func(now time.Time, cur Snapshot) Snapshot) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status != from {
		return false, nil
	}
	snap := next(t.clock.Now(), t.state)
	if err := t.store.Save(ctx, t.cfg.SessionID, snap); err != nil {
		return false, err
	}
	t.state = snap
	return true, nil
}

func (t *Timer) render() {
	if t.renderer == nil {
		return
	}
	t.mu.Lock()
	elapsed := t.state.ElapsedAt(t.clock.Now())
	status := t.state.Status
	t.mu.Unlock()

	t.renderer.Render(elapsed, status)
}

func (t *Timer) startLoop() {
	t.loopMu.Lock()
	defer t.loopMu.Unlock()

	if t.loopCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.loopCancel = cancel
	t.loopDone = done

	go t.refresh(ctx, done)
}

// stopLoop returns only after the refresh goroutine has exited
func (t *Timer) stopLoop() {
	t.loopMu.Lock()
	cancel, done := t.loopCancel, t.loopDone
	t.loopCancel, t.loopDone = nil, nil
	t.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Timer) refresh(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			t.render()
		}
	}
}
