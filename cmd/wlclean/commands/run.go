package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/internal/output"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

// drainTimeout bounds the wait for an in-flight removal after Stop.
const drainTimeout = 15 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Remove every video from the Watch Later playlist",
	Long: `Open the playlist and remove videos until none are left.

The status panel refreshes every --status-interval. Press Ctrl+C to stop
early; the final summary is printed either way.

Examples:
  wlclean run --user-data-dir ~/.config/google-chrome
  wlclean run --summary-format json --summary-out summary.json --events events.jsonl`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("summary-format", "text", "final summary format: text, json, yaml")
	flags.String("summary-out", "", "write the final summary to this file (default: stdout)")
	flags.String("events", "", "append every run event as JSON lines to this file (not stdout)")

	_ = viper.BindPFlag("summary_format", flags.Lookup("summary-format"))
	_ = viper.BindPFlag("summary_out", flags.Lookup("summary-out"))
	_ = viper.BindPFlag("events", flags.Lookup("events"))
}

func runClean(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v := viper.GetViper()

	format, err := output.ParseFormat(v.GetString("summary_format"))
	if err != nil {
		return err
	}
	if format == output.FormatJSONL {
		format = output.FormatJSON
	}

	ccfg, err := cleanerConfig(v)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	onEvent, events, err := eventSink(v.GetString("events"))
	if err != nil {
		return err
	}
	if events != nil {
		defer events.Close()
	}

	b, err := openPlaylist(ctx, browserConfig(v), v.GetString("url"), true)
	if err != nil {
		logger.Error("cannot open playlist", "error", err)
		return err
	}
	defer b.Close()

	cl, err := cleaner.New(b, ccfg, cleaner.Options{
		Out:        os.Stdout,
		OnEvent:    onEvent,
		StatusHint: "Press Ctrl+C to stop",
		StopHint:   "Run wlclean run again to continue",
	})
	if err != nil {
		return err
	}

	// The run outlives the signal context so Stop can print the summary.
	if err := cl.Start(context.Background()); err != nil {
		if errors.Is(err, cleaner.ErrNoItems) {
			logInfo("Nothing to clean.")
			return nil
		}
		return err
	}

	select {
	case <-cl.Done():
	case <-ctx.Done():
		logger.Info("interrupt received, stopping")
		_, _ = cl.Stop()
		select {
		case <-cl.Done():
		case <-time.After(drainTimeout):
			logger.Warn("last removal did not finish in time")
		}
	}

	sum := cl.LastSummary()
	if err := writeSummary(format, v.GetString("summary_out"), sum); err != nil {
		return err
	}
	if sum.Reason == cleaner.StopFailed {
		return fmt.Errorf("run ended early: %w", cleaner.ErrPageClosed)
	}
	return nil
}
