package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Status classifies what the loaded page shows.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusSignedOut   Status = "signed-out"
	StatusConsent     Status = "consent"
	StatusNotPlaylist Status = "not-playlist"
)

// Preflight errors. Check with errors.Is.
var (
	ErrSignedOut   = errors.New("not signed in")
	ErrConsentWall = errors.New("cookie consent page is blocking the playlist")
	ErrNotPlaylist = errors.New("page is not a playlist")
)

// Report is the outcome of inspecting the loaded page.
type Report struct {
	Status Status
	URL    string
	Title  string
	Items  int
}

// Err returns the error for blocking statuses, nil otherwise.
func (r Report) Err() error {
	switch r.Status {
	case StatusSignedOut:
		return fmt.Errorf("%w: sign in in the browser window or pass --user-data-dir with a signed-in profile", ErrSignedOut)
	case StatusConsent:
		return fmt.Errorf("%w: accept or reject cookies in the browser window and retry", ErrConsentWall)
	case StatusNotPlaylist:
		return fmt.Errorf("%w: %s", ErrNotPlaylist, r.URL)
	default:
		return nil
	}
}

// Inspect classifies a page from its location, title and HTML.
func Inspect(pageURL, title, html, itemSelector string) (Report, error) {
	r := Report{URL: pageURL, Title: strings.TrimSpace(title)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return r, fmt.Errorf("failed to parse page: %w", err)
	}
	if r.Title == "" {
		r.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	r.Items = doc.Find(itemSelector).Length()
	switch {
	case r.Items > 0:
		r.Status = StatusOK
	case strings.HasPrefix(host, "consent.") ||
		doc.Find(`form[action*="consent"]`).Length() > 0:
		r.Status = StatusConsent
	case host == "accounts.google.com" ||
		doc.Find(`a[href*="ServiceLogin"]`).Length() > 0 ||
		doc.Find(`ytd-button-renderer a[aria-label="Sign in"]`).Length() > 0:
		r.Status = StatusSignedOut
	case doc.Find("ytd-playlist-video-list-renderer").Length() == 0 &&
		!strings.Contains(pageURL, "list="):
		r.Status = StatusNotPlaylist
	default:
		r.Status = StatusEmpty
	}
	return r, nil
}

// Preflight inspects the currently loaded page.
func (b *Browser) Preflight(ctx context.Context) (Report, error) {
	var location, title, html string
	err := b.run(ctx,
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return Report{}, err
	}

	r, err := Inspect(location, title, html, b.cfg.ItemSelector)
	if err != nil {
		return r, err
	}
	browserLog().Debug("preflight", "status", r.Status, "items", r.Items, "title", r.Title, "url", r.URL)
	return r, nil
}
