package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

// Browser is a single Chrome tab showing the playlist. It implements
// cleaner.Page.
type Browser struct {
	cfg         Config
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ cleaner.Page = (*Browser)(nil)

// browserLog returns the package logger. It is resolved on every call so it
// follows logger.Init.
func browserLog() *slog.Logger {
	return logger.With("component", "browser")
}

// allocatorOptions builds the exec allocator flags for cfg.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(1280, 900),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("hide-scrollbars", false))
	}
	if cfg.Stealth {
		opts = append(opts, stealthFlags()...)
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if chromePath := FindChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

// Launch starts (or attaches to) Chrome and opens a blank tab.
func Launch(cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Printf("chromedp")),
		chromedp.WithErrorf(logger.Printf("chromedp")),
	)

	// The first Run on a fresh context starts the browser.
	actions := []chromedp.Action{}
	if cfg.Stealth {
		actions = append(actions, injectStealthScript())
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	browserLog().Debug("browser started",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"remote", cfg.RemoteURL != "",
		"profile", cfg.UserDataDir)

	return &Browser{
		cfg:         cfg,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Navigate loads url and waits for the first playlist item. A missing item is
// not an error here; Preflight explains what the page shows instead.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	browserLog().Debug("navigating", "url", url)

	navCtx, cancel := context.WithTimeout(b.ctx, b.cfg.NavigateTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	itemCtx, cancelItem := context.WithTimeout(navCtx, b.cfg.NavigateTimeout/2)
	defer cancelItem()
	if err := chromedp.Run(itemCtx, chromedp.WaitReady(b.cfg.ItemSelector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		browserLog().Debug("no playlist item appeared", "selector", b.cfg.ItemSelector, "error", err)
	}
	return nil
}

// run executes actions on the tab, bounded by the action timeout and by ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.cfg.ActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.ctx.Err() != nil {
			return fmt.Errorf("%w: %w", cleaner.ErrPageClosed, b.ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("page action timed out after %s: %w", b.cfg.ActionTimeout, err)
		}
		return fmt.Errorf("page action failed: %w", err)
	}
	return nil
}

// ItemCount implements cleaner.Page.
func (b *Browser) ItemCount(ctx context.Context) (int, error) {
	var n int
	if err := b.run(ctx, chromedp.Evaluate(countScript(b.cfg.ItemSelector), &n)); err != nil {
		return 0, err
	}
	return n, nil
}

// OpenItemMenu implements cleaner.Page.
func (b *Browser) OpenItemMenu(ctx context.Context, index int) error {
	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(clickNthScript(b.cfg.ItemSelector, index), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: index %d", cleaner.ErrItemNotFound, index)
	}
	return nil
}

// LocateMenuEntry implements cleaner.Page.
func (b *Browser) LocateMenuEntry(ctx context.Context, entry int) error {
	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(menuEntryScript(b.cfg.MenuSelector, entry, false), &ok)); err != nil {
		return err
	}
	if !ok {
		b.saveDebugScreenshot()
		return fmt.Errorf("%w: %s child %d", cleaner.ErrMenuEntryNotFound, b.cfg.MenuSelector, entry)
	}
	return nil
}

// ClickMenuEntry implements cleaner.Page.
func (b *Browser) ClickMenuEntry(ctx context.Context, entry int) error {
	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(menuEntryScript(b.cfg.MenuSelector, entry, true), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s child %d", cleaner.ErrMenuEntryNotFound, b.cfg.MenuSelector, entry)
	}
	return nil
}

// ScrollToLast implements cleaner.Page.
func (b *Browser) ScrollToLast(ctx context.Context) error {
	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(scrollLastScript(b.cfg.ItemSelector), &ok)); err != nil {
		return err
	}
	if !ok {
		return cleaner.ErrItemNotFound
	}
	return nil
}

func (b *Browser) saveDebugScreenshot() {
	if !b.cfg.DebugScreenshots {
		return
	}
	shot := captureScreenshot(b.ctx)
	if shot == nil {
		return
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("wlclean-debug-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		browserLog().Debug("failed to save debug screenshot", "error", err)
		return
	}
	browserLog().Debug("debug screenshot saved", "path", path)
}

// Close shuts the tab and, when launched by us, the browser.
func (b *Browser) Close() error {
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	return nil
}
