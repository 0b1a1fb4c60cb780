package cleaner

import "time"

// Phase is the externally visible state of a Cleaner.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	default:
		return "idle"
	}
}

// MarshalText lets phases appear as strings in JSON and YAML summaries.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// StopReason records why a run ended.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopRequested StopReason = "stopped"
	StopFailed    StopReason = "failed"
)

// RunState is the mutable state of one run. A fresh RunState is created by
// every successful Start.
type RunState struct {
	Running bool
	Paused  bool

	Deleted           int
	Errors            int
	Retries           int
	Attempts          int
	ConsecutiveErrors int

	StartedAt   time.Time
	PausedTotal time.Duration
	PauseStart  time.Time

	// LastItemCount is the last observed number of rendered items.
	LastItemCount int

	// generation identifies the run so stale resume timers can be ignored.
	generation uint64
}

func newRunState(now time.Time, items int, gen uint64) *RunState {
	return &RunState{
		Running:       true,
		StartedAt:     now,
		LastItemCount: items,
		generation:    gen,
	}
}

// Elapsed returns wall time since start minus all paused time, including a
// pause still in progress.
func (s *RunState) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	d := now.Sub(s.StartedAt) - s.PausedTotal
	if s.Paused && !s.PauseStart.IsZero() {
		d -= now.Sub(s.PauseStart)
	}
	if d < 0 {
		return 0
	}
	return d
}

func (s *RunState) phase() Phase {
	switch {
	case !s.Running:
		return PhaseIdle
	case s.Paused:
		return PhasePaused
	default:
		return PhaseRunning
	}
}

// Stats is a point-in-time copy of a RunState.
type Stats struct {
	Phase             Phase         `json:"phase" yaml:"phase"`
	Visible           int           `json:"visible" yaml:"visible"`
	Deleted           int           `json:"deleted" yaml:"deleted"`
	Errors            int           `json:"errors" yaml:"errors"`
	Retries           int           `json:"retries" yaml:"retries"`
	Attempts          int           `json:"attempts" yaml:"attempts"`
	ConsecutiveErrors int           `json:"consecutive_errors" yaml:"consecutive_errors"`
	Elapsed           time.Duration `json:"elapsed_ns" yaml:"elapsed"`
	PerHour           float64       `json:"per_hour" yaml:"per_hour"`
}

func (s *RunState) snapshot(now time.Time) Stats {
	elapsed := s.Elapsed(now)
	return Stats{
		Phase:             s.phase(),
		Visible:           s.LastItemCount,
		Deleted:           s.Deleted,
		Errors:            s.Errors,
		Retries:           s.Retries,
		Attempts:          s.Attempts,
		ConsecutiveErrors: s.ConsecutiveErrors,
		Elapsed:           elapsed,
		PerHour:           perHour(s.Deleted, elapsed),
	}
}

// perHour extrapolates a count over elapsed to an hourly rate. Rates over
// less than a second are reported as zero.
func perHour(n int, elapsed time.Duration) float64 {
	if elapsed < time.Second {
		return 0
	}
	return float64(n) / elapsed.Hours()
}

// Summary describes a finished run.
type Summary struct {
	Stats     `yaml:",inline"`
	Reason    StopReason `json:"reason" yaml:"reason"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	StoppedAt time.Time  `json:"stopped_at" yaml:"stopped_at"`
}

// Wall returns the wall-clock duration of the run, paused time included.
func (s Summary) Wall() time.Duration {
	if s.StartedAt.IsZero() || s.StoppedAt.Before(s.StartedAt) {
		return 0
	}
	return s.StoppedAt.Sub(s.StartedAt)
}
