package cleaner

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defines the pacing, retry and pause policy of a Cleaner.
type Config struct {
	// === Pacing ===

	// MinInterval and MaxInterval bound the random delay between two steps
	// of the pacing loop.
	MinInterval time.Duration `json:"min_interval" validate:"gt=0"`
	MaxInterval time.Duration `json:"max_interval" validate:"gtefield=MinInterval"`

	// MenuDelayMin and MenuDelayMax bound the random delay after opening an
	// item's menu and again before clicking the remove entry.
	MenuDelayMin time.Duration `json:"menu_delay_min" validate:"gte=0"`
	MenuDelayMax time.Duration `json:"menu_delay_max" validate:"gtefield=MenuDelayMin"`

	// === Retries ===

	// MaxRetries is the number of retries after the first failed attempt
	// on an item.
	MaxRetries int `json:"max_retries" validate:"gte=0"`

	// RetryDelay is the fixed backoff between attempts on the same item.
	RetryDelay time.Duration `json:"retry_delay" validate:"gte=0"`

	// === Burst pause ===

	// PauseAfterErrors is the number of consecutive abandoned items that
	// puts the cleaner into the paused state.
	PauseAfterErrors int `json:"pause_after_errors" validate:"gt=0"`

	// PauseDuration is how long the cleaner stays paused before resuming.
	PauseDuration time.Duration `json:"pause_duration" validate:"gt=0"`

	// === Page layout ===

	// MenuEntryIndex is the zero-based position of "remove from playlist"
	// inside the item menu.
	MenuEntryIndex int `json:"menu_entry_index" validate:"gte=0"`

	// LoadMoreMargin triggers a scroll to the last item when this many or
	// fewer items remain rendered.
	LoadMoreMargin int `json:"load_more_margin" validate:"gte=0"`

	// === Status ===

	// StatusInterval is the redraw cadence of the status panel.
	StatusInterval time.Duration `json:"status_interval" validate:"gt=0"`

	// ClearScreen clears the terminal before each redraw.
	ClearScreen bool `json:"clear_screen"`
}

// DefaultConfig returns the pacing used against the live site.
func DefaultConfig() Config {
	return Config{
		MinInterval:      300 * time.Millisecond,
		MaxInterval:      900 * time.Millisecond,
		MenuDelayMin:     50 * time.Millisecond,
		MenuDelayMax:     250 * time.Millisecond,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		PauseAfterErrors: 5,
		PauseDuration:    30 * time.Second,
		MenuEntryIndex:   2,
		LoadMoreMargin:   10,
		StatusInterval:   time.Second,
		ClearScreen:      true,
	}
}

var validate = validator.New()

// Validate checks the config for out-of-range values.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid cleaner config: %w", err)
	}
	return nil
}
