package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/reseat-project/reseat/interfaces"
)

// Options configures a browser session.
type Options struct {
	// Headless runs Chrome without a visible window. Headed mode is
	// useful when the remote service's bot heuristics reject headless
	// fingerprints.
	Headless bool

	// UserAgent overrides the browser's user agent when non-empty.
	UserAgent string

	// ExecPath points at a specific Chrome binary. Empty means lookup on
	// PATH.
	ExecPath string
}

// Page drives one Chrome tab. It implements interfaces.BrowserPage.
type Page struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ interfaces.BrowserPage = (*Page)(nil)

// NewPage launches a browser and opens a blank tab. The caller must
// Close the page on every exit path; the browser process lives until
// then.
func NewPage(ctx context.Context, opts Options) (*Page, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Eagerly start the browser so launch failures surface here instead
	// of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &Page{ctx: tabCtx, cancelCtx: cancelCtx, cancelAlloc: cancelAlloc}, nil
}

// Navigate loads the given URL and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(p.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Find waits up to timeout for the element to become visible. Returns
// interfaces.ErrElementNotFound if it never does.
func (p *Page) Find(ctx context.Context, selector string, timeout time.Duration) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, selectorBy(selector)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrElementNotFound, selector)
		}
		return nil, fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return &element{page: p, selector: selector}, nil
}

// Cookies returns the tab's current cookie jar.
func (p *Page) Cookies(ctx context.Context) ([]interfaces.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []*network.Cookie
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	cookies := make([]interfaces.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, interfaces.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// RunScript evaluates a JavaScript expression and returns its result
// coerced to a string.
func (p *Page) RunScript(ctx context.Context, js string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var result string
	wrapped := fmt.Sprintf("String(%s)", js)
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(wrapped, &result)); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}
	return result, nil
}

// Close tears down the tab and the browser process.
func (p *Page) Close() error {
	p.cancelCtx()
	p.cancelAlloc()
	return nil
}

// selectorBy picks the lookup strategy: XPath for selectors starting
// with "//" or "(", CSS otherwise.
func selectorBy(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

type element struct {
	page     *Page
	selector string
}

func (e *element) by() chromedp.QueryOption { return selectorBy(e.selector) }

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(e.page.ctx, chromedp.Click(e.selector, e.by())); err != nil {
		return fmt.Errorf("clicking %s: %w", e.selector, err)
	}
	return nil
}

func (e *element) Input(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(e.page.ctx, chromedp.SendKeys(e.selector, text, e.by())); err != nil {
		return fmt.Errorf("typing into %s: %w", e.selector, err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	if err := chromedp.Run(e.page.ctx, chromedp.Text(e.selector, &text, e.by())); err != nil {
		return "", fmt.Errorf("reading text of %s: %w", e.selector, err)
	}
	return text, nil
}
