// Package cleaner empties a "watch later" playlist by driving the page's own
// controls: open the first item's menu, click "remove from playlist", repeat.
//
// A Cleaner runs one removal at a time on a jittered, self-rescheduling loop.
// Failed items are retried with a fixed backoff and abandoned once retries
// are exhausted. A burst of abandoned items pauses the loop for a cooldown
// before it resumes on its own. A status panel is redrawn on a fixed cadence
// while the run is active.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/wlclean/internal/logger"
)

// DefaultPlaylistURL is the watch later playlist of the signed-in account.
const DefaultPlaylistURL = "https://www.youtube.com/playlist?list=WL"

// StopCanceled is recorded when the context passed to Start ends the run.
const StopCanceled StopReason = "canceled"

// Options wires a Cleaner to its surroundings.
type Options struct {
	// Out receives the status panel and the final summary (default: stdout).
	Out io.Writer

	// OnEvent, if set, is called for every run event. It may be called from
	// several goroutines and must not block for long.
	OnEvent func(Event)

	// StatusHint and StopHint are printed under the running and final panels.
	StatusHint string
	StopHint   string
}

// Cleaner removes playlist items one at a time from a Page.
type Cleaner struct {
	cfg  Config
	page Page
	opts Options
	now  func() time.Time

	mu     sync.Mutex
	state  *RunState
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	resume *time.Timer
	last   Summary

	// outMu orders panel redraws against the final summary.
	outMu sync.Mutex
}

// New creates an idle Cleaner.
func New(page Page, cfg Config, opts Options) (*Cleaner, error) {
	if page == nil {
		return nil, fmt.Errorf("cleaner: page is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Cleaner{
		cfg:  cfg,
		page: page,
		opts: opts,
		now:  time.Now,
	}, nil
}

// Start begins a new run. It returns ErrAlreadyRunning if a run is active and
// ErrNoItems if the page shows no removable items; neither changes any state.
// Cancelling ctx ends the run as if Stop had been called.
func (c *Cleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != nil && c.state.Running {
		c.mu.Unlock()
		logger.Warn("cleaner is already running")
		return ErrAlreadyRunning
	}
	prev := c.done
	c.mu.Unlock()

	// A stopped run may still be finishing its last removal.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n, err := c.page.ItemCount(ctx)
	if err != nil {
		return fmt.Errorf("counting playlist items: %w", err)
	}
	if n == 0 {
		logger.Error("no videos found in the playlist",
			"hint", "open "+DefaultPlaylistURL+" while signed in and try again")
		return ErrNoItems
	}

	c.mu.Lock()
	if c.state != nil && c.state.Running {
		c.mu.Unlock()
		logger.Warn("cleaner is already running")
		return ErrAlreadyRunning
	}
	c.gen++
	gen := c.gen
	c.state = newRunState(c.now(), n, gen)
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	logger.Info("cleaning started", "items", n)
	c.drawStatus()

	go c.loop(runCtx, gen, done)
	go c.report(runCtx)
	return nil
}

// Stop ends the active run, prints the final summary and returns it. Calling
// Stop while idle logs a warning and returns ErrNotRunning.
func (c *Cleaner) Stop() (Summary, error) {
	sum, err := c.finish(0, StopRequested, true)
	if err != nil {
		logger.Warn("cleaner is not running")
	}
	return sum, err
}

// Stats returns a snapshot of the current (or last) run.
func (c *Cleaner) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return Stats{}
	}
	return c.state.snapshot(c.now())
}

// Phase reports whether the cleaner is idle, running or paused.
func (c *Cleaner) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return PhaseIdle
	}
	return c.state.phase()
}

// Done is closed when the loop of the most recent run has exited.
func (c *Cleaner) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// LastSummary returns the summary of the most recently finished run.
func (c *Cleaner) LastSummary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// finish stops the run identified by gen, or any active run when anyGen is set.
func (c *Cleaner) finish(gen uint64, reason StopReason, anyGen bool) (Summary, error) {
	c.mu.Lock()
	st := c.state
	if st == nil || !st.Running || (!anyGen && st.generation != gen) {
		c.mu.Unlock()
		return Summary{}, ErrNotRunning
	}

	now := c.now()
	if st.Paused {
		st.PausedTotal += now.Sub(st.PauseStart)
		st.Paused = false
		st.PauseStart = time.Time{}
	}
	st.Running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.resume != nil {
		c.resume.Stop()
		c.resume = nil
	}

	sum := Summary{
		Stats:     st.snapshot(now),
		Reason:    reason,
		StartedAt: st.StartedAt,
		StoppedAt: now,
	}
	c.last = sum
	c.mu.Unlock()

	c.outMu.Lock()
	drawPanel(c.opts.Out, false, RenderSummary(sum, c.opts.StopHint))
	c.outMu.Unlock()

	logger.Info("cleaning stopped",
		"reason", reason,
		"deleted", sum.Deleted,
		"errors", sum.Errors,
		"retries", sum.Retries,
		"elapsed", sum.Elapsed.Round(time.Second))
	c.emit(Event{Kind: EventStopped, Detail: string(reason)})
	return sum, nil
}

// loop is the pacing loop: every step is followed by a fresh random delay.
func (c *Cleaner) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	for {
		if !sleep(ctx, jitter(c.cfg.MinInterval, c.cfg.MaxInterval)) {
			c.finish(gen, StopCanceled, false)
			return
		}
		if !c.step(ctx, gen) {
			if ctx.Err() != nil {
				c.finish(gen, StopCanceled, false)
			}
			return
		}
	}
}

// step runs one iteration of the pacing loop and reports whether the loop
// should continue.
func (c *Cleaner) step(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	st := c.state
	if st == nil || st.generation != gen || !st.Running {
		c.mu.Unlock()
		return false
	}
	if st.ConsecutiveErrors >= c.cfg.PauseAfterErrors && !st.Paused {
		consecutive := st.ConsecutiveErrors
		st.Paused = true
		st.PauseStart = c.now()
		c.resume = time.AfterFunc(c.cfg.PauseDuration, func() { c.resumeRun(gen) })
		c.mu.Unlock()

		logger.Warn("too many consecutive errors, pausing",
			"consecutive_errors", consecutive,
			"pause", c.cfg.PauseDuration)
		c.emit(Event{Kind: EventPaused, Detail: fmt.Sprintf("%d consecutive errors", consecutive)})
		return true
	}
	if st.Paused {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	n, err := c.page.ItemCount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return c.pageFailed(gen, err)
	}
	c.update(gen, func(s *RunState) { s.LastItemCount = n })

	if n == 0 {
		logger.Info("all visible videos have been removed",
			"hint", "if the playlist is not empty, reload the page and run again")
		c.finish(gen, StopCompleted, false)
		return false
	}

	if err := c.removeItem(ctx, gen); errors.Is(err, ErrPageClosed) {
		return c.pageFailed(gen, err)
	}
	if ctx.Err() != nil {
		return false
	}

	remaining, err := c.page.ItemCount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return c.pageFailed(gen, err)
	}
	c.update(gen, func(s *RunState) { s.LastItemCount = remaining })
	if remaining > 0 && remaining <= c.cfg.LoadMoreMargin {
		if err := c.page.ScrollToLast(ctx); err != nil {
			logger.Debug("scroll to load more failed", "error", err)
		} else {
			logger.Debug("requested more items", "remaining", remaining)
			c.emit(Event{Kind: EventLoadMore, Detail: fmt.Sprintf("%d remaining", remaining)})
		}
	}
	return true
}

// pageFailed handles a failed query against the page. A closed page ends the
// run; any other failure counts toward the burst pause like an abandoned item.
func (c *Cleaner) pageFailed(gen uint64, err error) bool {
	if errors.Is(err, ErrPageClosed) {
		logger.Error("page is gone, stopping", "error", err)
		c.finish(gen, StopFailed, false)
		return false
	}
	logger.Warn("counting playlist items failed", "error", err)
	c.update(gen, func(s *RunState) { s.ConsecutiveErrors++ })
	return true
}

// removeItem removes the first rendered item, retrying on failure. It
// returns the last error when the item was abandoned or the page closed.
func (c *Cleaner) removeItem(ctx context.Context, gen uint64) error {
	c.update(gen, func(s *RunState) { s.Attempts++ })

	maxAttempts := c.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := c.removeOnce(ctx, 0)
		if err == nil {
			c.update(gen, func(s *RunState) {
				s.Deleted++
				s.ConsecutiveErrors = 0
			})
			c.emit(Event{Kind: EventRemoved, Attempt: attempt})
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrPageClosed) {
			return err
		}

		logger.Warn("removal failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)

		if attempt >= maxAttempts {
			c.update(gen, func(s *RunState) {
				s.Errors++
				s.ConsecutiveErrors++
			})
			logger.Error("giving up on item, moving to the next one", "attempts", attempt)
			c.emit(Event{Kind: EventAbandoned, Attempt: attempt, Detail: err.Error()})
			return err
		}

		c.update(gen, func(s *RunState) { s.Retries++ })
		c.emit(Event{Kind: EventRetry, Attempt: attempt, Detail: err.Error()})
		if !sleep(ctx, c.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

// removeOnce performs a single open-menu, click-remove interaction.
func (c *Cleaner) removeOnce(ctx context.Context, index int) error {
	if err := c.page.OpenItemMenu(ctx, index); err != nil {
		return fmt.Errorf("opening item menu: %w", err)
	}
	if !sleep(ctx, jitter(c.cfg.MenuDelayMin, c.cfg.MenuDelayMax)) {
		return ctx.Err()
	}
	if err := c.page.LocateMenuEntry(ctx, c.cfg.MenuEntryIndex); err != nil {
		return fmt.Errorf("locating remove entry: %w", err)
	}
	if !sleep(ctx, jitter(c.cfg.MenuDelayMin, c.cfg.MenuDelayMax)) {
		return ctx.Err()
	}
	if err := c.page.ClickMenuEntry(ctx, c.cfg.MenuEntryIndex); err != nil {
		return fmt.Errorf("clicking remove entry: %w", err)
	}
	return nil
}

// resumeRun ends a burst pause. It is a no-op for stopped or replaced runs.
func (c *Cleaner) resumeRun(gen uint64) {
	c.mu.Lock()
	st := c.state
	if st == nil || st.generation != gen || !st.Running || !st.Paused {
		c.mu.Unlock()
		return
	}
	paused := c.now().Sub(st.PauseStart)
	st.PausedTotal += paused
	st.Paused = false
	st.PauseStart = time.Time{}
	st.ConsecutiveErrors = 0
	c.resume = nil
	c.mu.Unlock()

	logger.Info("resuming after pause", "paused", paused.Round(time.Millisecond))
	c.emit(Event{Kind: EventResumed})
}

// report redraws the status panel until ctx is done.
func (c *Cleaner) report(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.drawStatus()
		}
	}
}

func (c *Cleaner) drawStatus() {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	stats := c.Stats()
	if stats.Phase == PhaseIdle {
		return
	}
	drawPanel(c.opts.Out, c.cfg.ClearScreen, RenderStatus(stats, c.opts.StatusHint))
}

// update applies fn to the run identified by gen while it is still active.
func (c *Cleaner) update(gen uint64, fn func(*RunState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil || c.state.generation != gen || !c.state.Running {
		return
	}
	fn(c.state)
}

func (c *Cleaner) emit(ev Event) {
	if c.opts.OnEvent == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = c.now()
	}
	c.opts.OnEvent(ev)
}

// jitter returns a random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
