package cleaner

import (
	"context"
	"errors"
)

// Page is the live rendered playlist the cleaner drives. Items are addressed
// by their current position in document order; positions shift as soon as an
// item is removed, so callers must re-query before every action.
type Page interface {
	// ItemCount returns the number of removable items currently rendered.
	ItemCount(ctx context.Context) (int, error)

	// OpenItemMenu activates the menu button of the item at index.
	OpenItemMenu(ctx context.Context, index int) error

	// LocateMenuEntry checks that the open menu has an entry at position.
	LocateMenuEntry(ctx context.Context, entry int) error

	// ClickMenuEntry activates the entry at position in the open menu.
	ClickMenuEntry(ctx context.Context, entry int) error

	// ScrollToLast scrolls the last rendered item into view so the host page
	// loads more items.
	ScrollToLast(ctx context.Context) error
}

// Transient interaction failures. Check with errors.Is.
var (
	// ErrItemNotFound indicates no item is rendered at the requested index.
	ErrItemNotFound = errors.New("playlist item not found")
	// ErrMenuEntryNotFound indicates the menu or the expected entry is missing.
	ErrMenuEntryNotFound = errors.New("menu entry not found")
)

// ErrPageClosed indicates the page is gone for good (tab crashed, browser
// closed). A run that sees it ends with StopFailed.
var ErrPageClosed = errors.New("page is closed")

// Precondition violations returned by Start and Stop.
var (
	ErrAlreadyRunning = errors.New("cleaner is already running")
	ErrNotRunning     = errors.New("cleaner is not running")
	ErrNoItems        = errors.New("no playlist items found")
)
