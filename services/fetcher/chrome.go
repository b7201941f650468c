package fetcher

import (
	"context"
	"regexp"
	"strings"

	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Page text handed to the freeform backend is capped; shopping search pages
// past this point are pagination and footer noise.
const maxFreeformPageText = 60000

var whitespaceRun = regexp.MustCompile(`[ \t\r\n]+`)

// Options configures the headless browser.
type Options struct {
	Headless  bool
	NoSandbox bool
	UserAgent string
}

// ChromeFetcher renders pages in headless Chrome and delegates freeform
// extraction to a Claude backend over the rendered page text.
type ChromeFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	llm         *ClaudeExtractor // nil when freeform sources are disabled
	logger      *logger.Logger
}

// NewChromeFetcher creates a fetcher backed by one shared browser allocator.
// Each Fetch runs in its own tab so one slow source cannot stall another.
func NewChromeFetcher(opts Options, llm *ClaudeExtractor) *ChromeFetcher {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &ChromeFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		llm:         llm,
		logger:      logger.ForFetcher(),
	}
}

// Fetch navigates to url in a fresh tab, waits for waitFor to appear, and
// returns the rendered markup. The caller's context bounds the whole render.
func (f *ChromeFetcher) Fetch(ctx context.Context, url, waitFor string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	// Propagate the caller's deadline and cancellation into the tab context,
	// which chromedp derives from the allocator rather than from ctx.
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitFor != "" {
		actions = append(actions, chromedp.WaitReady(waitFor, chromedp.ByQuery))
	}
	// Nudge lazy-loaded product grids before reading the DOM.
	actions = append(actions,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	f.logger.Debug().Str("url", url).Str("wait_for", waitFor).Msg("Rendering page")

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if tabCtx.Err() != nil || ctx.Err() != nil {
			return "", context.DeadlineExceeded
		}
		return "", err
	}
	return html, nil
}

// RunFreeform renders the page, strips it down to visible text, and asks the
// Claude backend to extract product records as JSON.
func (f *ChromeFetcher) RunFreeform(ctx context.Context, url, instruction string) (string, error) {
	if f.llm == nil {
		return "", apperr.NewConfiguration("freeform extraction backend is not configured", nil)
	}

	html, err := f.Fetch(ctx, url, "body")
	if err != nil {
		return "", err
	}

	text, err := pageText(html)
	if err != nil {
		return "", err
	}

	return f.llm.ExtractJSON(ctx, text, instruction)
}

// Close shuts down the browser allocator.
func (f *ChromeFetcher) Close() {
	f.allocCancel()
}

// pageText reduces rendered markup to whitespace-collapsed visible text.
func pageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, svg").Remove()
	text := whitespaceRun.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)
	if len(text) > maxFreeformPageText {
		text = text[:maxFreeformPageText]
	}
	return text, nil
}
