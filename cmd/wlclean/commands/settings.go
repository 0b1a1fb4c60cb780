package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/jmylchreest/wlclean/cmd/wlclean/browser"
	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/internal/output"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

// cleanerConfig reads the pacing settings from flags, env and config file.
func cleanerConfig(v *viper.Viper) (cleaner.Config, error) {
	cfg := cleaner.Config{
		MinInterval:      v.GetDuration("min_interval"),
		MaxInterval:      v.GetDuration("max_interval"),
		MenuDelayMin:     v.GetDuration("menu_delay_min"),
		MenuDelayMax:     v.GetDuration("menu_delay_max"),
		MaxRetries:       v.GetInt("max_retries"),
		RetryDelay:       v.GetDuration("retry_delay"),
		PauseAfterErrors: v.GetInt("pause_after_errors"),
		PauseDuration:    v.GetDuration("pause_duration"),
		MenuEntryIndex:   v.GetInt("menu_entry_index"),
		LoadMoreMargin:   v.GetInt("load_more_margin"),
		StatusInterval:   v.GetDuration("status_interval"),
		ClearScreen:      v.GetBool("clear_screen"),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// browserConfig reads the browser settings from flags, env and config file.
func browserConfig(v *viper.Viper) browser.Config {
	return browser.Config{
		Headless:         v.GetBool("headless"),
		Stealth:          v.GetBool("stealth"),
		UserDataDir:      v.GetString("user_data_dir"),
		RemoteURL:        v.GetString("remote_url"),
		UserAgent:        v.GetString("user_agent"),
		NavigateTimeout:  v.GetDuration("navigate_timeout"),
		ActionTimeout:    v.GetDuration("action_timeout"),
		ItemSelector:     v.GetString("item_selector"),
		MenuSelector:     v.GetString("menu_selector"),
		DebugScreenshots: v.GetBool("debug_screenshots"),
	}
}

// openPlaylist launches the browser, loads the playlist and checks that it
// can be cleaned. When strict is false, blocking preflight results are only
// logged so the operator can fix them in the browser window.
func openPlaylist(ctx context.Context, cfg browser.Config, url string, strict bool) (*browser.Browser, error) {
	b, err := browser.Launch(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Navigate(ctx, url); err != nil {
		b.Close()
		return nil, err
	}

	report, err := b.Preflight(ctx)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to inspect page: %w", err)
	}
	if perr := report.Err(); perr != nil {
		if strict {
			b.Close()
			return nil, perr
		}
		logger.Warn("playlist is not ready", "reason", perr)
	}
	logger.Info("playlist loaded", "title", report.Title, "visible_items", report.Items, "status", report.Status)
	return b, nil
}

// errEventsStdout rejects --events -, which would interleave with the status
// panel on stdout.
var errEventsStdout = errors.New("--events needs a file path; stdout is used by the status panel")

// eventSink returns an OnEvent callback writing JSONL to path, or nil when
// path is empty.
func eventSink(path string) (func(cleaner.Event), io.Closer, error) {
	if path == "" {
		return nil, nil, nil
	}
	if path == "-" {
		return nil, nil, errEventsStdout
	}
	f, err := output.Open(path)
	if err != nil {
		return nil, nil, err
	}
	w := output.NewJSONLWriter(f)
	return func(ev cleaner.Event) {
		if err := w.Write(ev); err != nil {
			logger.Debug("failed to write event", "error", err)
		}
	}, w, nil
}

// writeSummary writes sum in format to path. The text form is the rendered
// panel, which Stop already printed to stdout, so it is only written when a
// file is requested.
func writeSummary(format output.Format, path string, sum cleaner.Summary) error {
	if format == output.FormatText && (path == "" || path == "-") {
		return nil
	}

	w, err := output.Open(path)
	if err != nil {
		return err
	}
	defer w.Close()

	if format == output.FormatText {
		_, err = fmt.Fprintln(w, cleaner.RenderSummary(sum, ""))
		return err
	}
	return output.Encode(w, format, sum)
}
