// Package browser drives a Chrome instance through chromedp and exposes the
// loaded playlist as a cleaner.Page. It supports reusing a signed-in Chrome
// profile, attaching to an already running Chrome, and stealth launch flags.
package browser

import (
	"time"
)

// Default selectors for the watch later page layout.
const (
	DefaultItemSelector = "#contents yt-icon-button#button"
	DefaultMenuSelector = "tp-yt-paper-listbox#items"
)

// Config holds configuration for the browser session.
type Config struct {
	// Headless hides the browser window. Leave it off to sign in by hand.
	Headless bool
	// Stealth enables anti-automation-detection flags and script.
	Stealth bool
	// UserDataDir reuses a Chrome profile so an existing sign-in applies.
	UserDataDir string
	// RemoteURL attaches to a running Chrome's DevTools endpoint instead of
	// launching one (e.g. ws://127.0.0.1:9222/devtools/browser/...).
	RemoteURL string
	// UserAgent overrides the browser user agent when set.
	UserAgent string

	// NavigateTimeout bounds page load and the wait for the first item.
	NavigateTimeout time.Duration
	// ActionTimeout bounds every single page interaction.
	ActionTimeout time.Duration

	ItemSelector string
	MenuSelector string

	// DebugScreenshots saves a screenshot when the menu entry is missing.
	DebugScreenshots bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		NavigateTimeout: 30 * time.Second,
		ActionTimeout:   10 * time.Second,
		ItemSelector:    DefaultItemSelector,
		MenuSelector:    DefaultMenuSelector,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = d.NavigateTimeout
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	if c.ItemSelector == "" {
		c.ItemSelector = d.ItemSelector
	}
	if c.MenuSelector == "" {
		c.MenuSelector = d.MenuSelector
	}
	return c
}
