package signup

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/reseat-project/reseat/interfaces"
)

// SessionCookieName is the cookie the remote service stores the session
// credential in.
const SessionCookieName = "WorkosCursorSessionToken"

// CredentialExtractor pulls the session token out of the browser's
// cookie jar. The cookie may not be set immediately after the settings
// page renders, so lookups are retried.
type CredentialExtractor struct {
	page interfaces.BrowserPage
	log  *slog.Logger

	// CookieName defaults to SessionCookieName.
	CookieName string

	// MaxAttempts defaults to 3.
	MaxAttempts int

	// RetryInterval defaults to 2s.
	RetryInterval time.Duration

	sleep func(time.Duration)
}

// NewCredentialExtractor creates an extractor with the default budget.
func NewCredentialExtractor(page interfaces.BrowserPage, log *slog.Logger) *CredentialExtractor {
	return &CredentialExtractor{
		page:          page,
		log:           log,
		CookieName:    SessionCookieName,
		MaxAttempts:   3,
		RetryInterval: 2 * time.Second,
		sleep:         time.Sleep,
	}
}

// Extract returns the session token, retrying the cookie lookup up to
// MaxAttempts times. Returns ErrTokenNotFound once the budget is
// exhausted; that is fatal to the pipeline.
func (e *CredentialExtractor) Extract(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		cookies, err := e.page.Cookies(ctx)
		if err != nil {
			e.log.Warn("Could not read cookie jar", slog.Int("attempt", attempt), "err", err)
		} else {
			for _, cookie := range cookies {
				if cookie.Name != e.CookieName {
					continue
				}
				token, err := splitSessionCookie(cookie.Value)
				if err != nil {
					e.log.Warn("Session cookie present but malformed", "err", err)
					continue
				}
				return token, nil
			}
			e.log.Debug("Session cookie not set yet", slog.Int("attempt", attempt))
		}

		if attempt < e.MaxAttempts {
			e.sleep(e.RetryInterval)
		}
	}
	return "", fmt.Errorf("%w after %d attempts", interfaces.ErrTokenNotFound, e.MaxAttempts)
}

// splitSessionCookie decodes the cookie's {checksum}::{token} value and
// returns the token segment. The live service URL-encodes the delimiter,
// so the value is unescaped first; a value that does not unescape is
// split as-is.
func splitSessionCookie(value string) (string, error) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		decoded = value
	}
	_, token, found := strings.Cut(decoded, "::")
	if !found || token == "" {
		return "", fmt.Errorf("cookie value carries no checksum-delimited token")
	}
	return token, nil
}
