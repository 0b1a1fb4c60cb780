package browser

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jmylchreest/wlclean/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Output: io.Discard})
	os.Exit(m.Run())
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Headless: true}.withDefaults()

	if cfg.NavigateTimeout != 30*time.Second {
		t.Errorf("NavigateTimeout = %s", cfg.NavigateTimeout)
	}
	if cfg.ActionTimeout != 10*time.Second {
		t.Errorf("ActionTimeout = %s", cfg.ActionTimeout)
	}
	if cfg.ItemSelector != DefaultItemSelector || cfg.MenuSelector != DefaultMenuSelector {
		t.Errorf("selectors = %q / %q", cfg.ItemSelector, cfg.MenuSelector)
	}
	if !cfg.Headless {
		t.Error("explicit fields must be preserved")
	}
}

func TestConfig_WithDefaultsKeepsOverrides(t *testing.T) {
	cfg := Config{ActionTimeout: time.Second, ItemSelector: "li.item"}.withDefaults()
	if cfg.ActionTimeout != time.Second || cfg.ItemSelector != "li.item" {
		t.Errorf("overrides lost: %+v", cfg)
	}
}

func TestFindBinary(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", errors.New("not found")
	}

	if got := findBinary([]string{"google-chrome", "chromium"}, lookPath); got != "/usr/bin/chromium" {
		t.Errorf("findBinary() = %q", got)
	}
	if got := findBinary([]string{"google-chrome"}, lookPath); got != "" {
		t.Errorf("findBinary() = %q, want empty", got)
	}
}

func TestAllocatorOptions_Count(t *testing.T) {
	base := len(allocatorOptions(Config{Headless: true}))
	withProfile := len(allocatorOptions(Config{Headless: true, UserDataDir: "/tmp/profile"}))
	if withProfile != base+1 {
		t.Errorf("user data dir should add one option: %d vs %d", withProfile, base)
	}
	stealth := len(allocatorOptions(Config{Headless: true, Stealth: true}))
	if stealth != base+len(stealthFlags()) {
		t.Errorf("stealth should add %d options: %d vs %d", len(stealthFlags()), stealth, base)
	}
}
