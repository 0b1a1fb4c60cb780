package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/wlclean/cmd/wlclean/browser"
	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/internal/output"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Output: io.Discard})
	os.Exit(m.Run())
}

// --- config ---

func TestConfigKey(t *testing.T) {
	if got := configKey("pause-after-errors"); got != "pause_after_errors" {
		t.Errorf("configKey() = %q", got)
	}
}

func TestCleanerConfig_FromViper(t *testing.T) {
	v := viper.New()
	v.Set("min_interval", "200ms")
	v.Set("max_interval", "400ms")
	v.Set("menu_delay_min", "10ms")
	v.Set("menu_delay_max", "20ms")
	v.Set("max_retries", 5)
	v.Set("retry_delay", "1s")
	v.Set("pause_after_errors", 4)
	v.Set("pause_duration", "45s")
	v.Set("menu_entry_index", 3)
	v.Set("load_more_margin", 8)
	v.Set("status_interval", "2s")
	v.Set("clear_screen", false)

	cfg, err := cleanerConfig(v)
	if err != nil {
		t.Fatalf("cleanerConfig() error = %v", err)
	}
	if cfg.MinInterval != 200*time.Millisecond || cfg.MaxInterval != 400*time.Millisecond {
		t.Errorf("intervals = %s..%s", cfg.MinInterval, cfg.MaxInterval)
	}
	if cfg.MaxRetries != 5 || cfg.PauseAfterErrors != 4 || cfg.MenuEntryIndex != 3 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.PauseDuration != 45*time.Second || cfg.ClearScreen {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestCleanerConfig_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("min_interval", "2s")
	v.Set("max_interval", "1s")
	v.Set("pause_after_errors", 1)
	v.Set("pause_duration", "1s")
	v.Set("status_interval", "1s")

	if _, err := cleanerConfig(v); err == nil {
		t.Error("expected error when max_interval < min_interval")
	}
}

func TestBrowserConfig_FromViper(t *testing.T) {
	v := viper.New()
	v.Set("headless", true)
	v.Set("user_data_dir", "/tmp/profile")
	v.Set("action_timeout", "3s")
	v.Set("item_selector", "li.item")

	cfg := browserConfig(v)
	want := browser.Config{
		Headless:      true,
		UserDataDir:   "/tmp/profile",
		ActionTimeout: 3 * time.Second,
		ItemSelector:  "li.item",
	}
	if cfg != want {
		t.Errorf("browserConfig() = %+v, want %+v", cfg, want)
	}
}

func TestRootFlagsBound(t *testing.T) {
	for _, key := range []string{"min_interval", "pause_after_errors", "user_data_dir", "item_selector", "log_json"} {
		if !viper.IsSet(key) && viper.Get(key) == nil {
			t.Errorf("flag for %q is not bound to viper", key)
		}
	}
	if got := viper.GetInt("max_retries"); got != cleaner.DefaultConfig().MaxRetries {
		t.Errorf("max_retries default = %d", got)
	}
}

// --- summary and events ---

func testSummary() cleaner.Summary {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return cleaner.Summary{
		Stats: cleaner.Stats{
			Deleted: 42,
			Errors:  1,
			Retries: 3,
			Elapsed: 90 * time.Second,
		},
		Reason:    cleaner.StopCompleted,
		StartedAt: start,
		StoppedAt: start.Add(2 * time.Minute),
	}
}

func TestWriteSummary_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := writeSummary(output.FormatJSON, path, testSummary()); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if got["deleted"] != float64(42) || got["reason"] != "completed" || got["phase"] != "idle" {
		t.Errorf("unexpected summary %v", got)
	}
}

func TestWriteSummary_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	if err := writeSummary(output.FormatYAML, path, testSummary()); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, data)
	}
	if got["deleted"] != 42 || got["reason"] != "completed" {
		t.Errorf("unexpected summary %v", got)
	}
}

func TestWriteSummary_TextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	if err := writeSummary(output.FormatText, path, testSummary()); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "stopped (completed)") {
		t.Errorf("expected rendered panel, got %q", data)
	}
}

func TestEventSink(t *testing.T) {
	onEvent, closer, err := eventSink("")
	if err != nil || onEvent != nil || closer != nil {
		t.Fatal("empty path should disable the event sink")
	}

	if _, _, err := eventSink("-"); !errors.Is(err, errEventsStdout) {
		t.Errorf("eventSink(\"-\") error = %v, want errEventsStdout", err)
	}

	path := filepath.Join(t.TempDir(), "events.jsonl")
	onEvent, closer, err = eventSink(path)
	if err != nil {
		t.Fatalf("eventSink() error = %v", err)
	}
	onEvent(cleaner.Event{Kind: cleaner.EventRemoved, Attempt: 1})
	onEvent(cleaner.Event{Kind: cleaner.EventStopped, Detail: "completed"})
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"kind":"removed"`) {
		t.Errorf("unexpected events file:\n%s", data)
	}
}

// --- console ---

type fakeController struct {
	phase   cleaner.Phase
	starts  int
	stops   int
	stats   cleaner.Stats
	startFn func() error
}

func (f *fakeController) Start(context.Context) error {
	f.starts++
	if f.startFn != nil {
		return f.startFn()
	}
	f.phase = cleaner.PhaseRunning
	return nil
}

func (f *fakeController) Stop() (cleaner.Summary, error) {
	f.stops++
	if f.phase == cleaner.PhaseIdle {
		return cleaner.Summary{}, cleaner.ErrNotRunning
	}
	f.phase = cleaner.PhaseIdle
	return cleaner.Summary{}, nil
}

func (f *fakeController) Stats() cleaner.Stats {
	s := f.stats
	s.Phase = f.phase
	return s
}

func (f *fakeController) Phase() cleaner.Phase { return f.phase }

func newTestConsole(ctl *fakeController) (*console, *bytes.Buffer, *int) {
	out := &bytes.Buffer{}
	reloads := 0
	return &console{
		ctl: ctl,
		reload: func(context.Context) error {
			reloads++
			return nil
		},
		out: out,
	}, out, &reloads
}

func TestConsole_StartStop(t *testing.T) {
	ctl := &fakeController{}
	con, _, _ := newTestConsole(ctl)
	ctx := context.Background()

	if con.handle(ctx, "start") {
		t.Fatal("start must not exit the console")
	}
	if ctl.starts != 1 || ctl.phase != cleaner.PhaseRunning {
		t.Fatalf("expected running after start, got %s", ctl.phase)
	}

	con.handle(ctx, "  STOP ")
	if ctl.stops != 1 || ctl.phase != cleaner.PhaseIdle {
		t.Fatalf("expected idle after stop, got %s", ctl.phase)
	}
}

func TestConsole_StartRefusedIsNotFatal(t *testing.T) {
	ctl := &fakeController{startFn: func() error { return cleaner.ErrNoItems }}
	con, _, _ := newTestConsole(ctl)

	if con.handle(context.Background(), "start") {
		t.Error("a refused start must keep the console open")
	}
}

func TestConsole_Status(t *testing.T) {
	ctl := &fakeController{stats: cleaner.Stats{Deleted: 7, Errors: 1}}
	con, out, _ := newTestConsole(ctl)

	con.handle(context.Background(), "status")
	if !strings.Contains(out.String(), "idle (last run: 7 deleted, 1 errors") {
		t.Errorf("unexpected idle status %q", out.String())
	}

	out.Reset()
	ctl.phase = cleaner.PhaseRunning
	con.handle(context.Background(), "status")
	if !strings.Contains(out.String(), "Watch Later Cleaner - running") {
		t.Errorf("expected status panel, got %q", out.String())
	}
}

func TestConsole_Reload(t *testing.T) {
	ctl := &fakeController{}
	con, out, reloads := newTestConsole(ctl)

	con.handle(context.Background(), "reload")
	if *reloads != 1 {
		t.Errorf("expected 1 reload, got %d", *reloads)
	}

	ctl.phase = cleaner.PhaseRunning
	con.handle(context.Background(), "reload")
	if *reloads != 1 {
		t.Error("reload must be refused while running")
	}
	if !strings.Contains(out.String(), "stop the run before reloading") {
		t.Errorf("expected refusal message, got %q", out.String())
	}
}

func TestConsole_QuitStopsRun(t *testing.T) {
	ctl := &fakeController{phase: cleaner.PhaseRunning}
	con, _, _ := newTestConsole(ctl)

	if !con.handle(context.Background(), "quit") {
		t.Fatal("quit must exit the console")
	}
	if ctl.stops != 1 {
		t.Errorf("expected quit to stop the run, got %d stops", ctl.stops)
	}
}

func TestConsole_Unknown(t *testing.T) {
	con, out, _ := newTestConsole(&fakeController{})
	con.handle(context.Background(), "frobnicate")
	if !strings.Contains(out.String(), `unknown command "frobnicate"`) {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestConsole_ServeUntilEOF(t *testing.T) {
	ctl := &fakeController{}
	con, out, _ := newTestConsole(ctl)

	con.serve(context.Background(), strings.NewReader("start\nstatus\n"))

	if ctl.starts != 1 {
		t.Errorf("expected 1 start, got %d", ctl.starts)
	}
	if ctl.stops != 1 || ctl.phase != cleaner.PhaseIdle {
		t.Error("EOF should stop the active run")
	}
	if !strings.HasPrefix(out.String(), consoleHelp) {
		t.Errorf("expected help banner first, got %q", out.String())
	}
}

func TestConsole_ServeCanceled(t *testing.T) {
	ctl := &fakeController{phase: cleaner.PhaseRunning}
	con, _, _ := newTestConsole(ctl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()
	con.serve(ctx, r)

	if ctl.phase != cleaner.PhaseIdle {
		t.Error("cancellation should stop the active run")
	}
}

// --- errors ---

func TestPreflightErrorsAreSentinels(t *testing.T) {
	r := browser.Report{Status: browser.StatusSignedOut}
	if !errors.Is(r.Err(), browser.ErrSignedOut) {
		t.Errorf("expected ErrSignedOut, got %v", r.Err())
	}
}
