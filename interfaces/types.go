package interfaces

import (
	"context"
	"time"
)

// Stage identifies how far a provisioning run progressed. It is attached
// to every terminal error so operators can tell where a run died.
type Stage string

const (
	StageStarted                   Stage = "started"
	StagePersonalInfoSubmitted     Stage = "personal_info_submitted"
	StagePasswordSubmitted         Stage = "password_submitted"
	StageAwaitingEmailVerification Stage = "awaiting_email_verification"
	StageVerified                  Stage = "verified"
	StageTokenExtracted            Stage = "token_extracted"
	StageFailed                    Stage = "failed"
)

// PageSignal enumerates the page states the remote signup flow can
// present. Signals are probed once per state-machine iteration instead of
// ad hoc element lookups.
type PageSignal int

const (
	SignalNone PageSignal = iota
	SignalPersonalInfoForm
	SignalPasswordForm
	SignalChallengeWidget
	SignalCodeEntry
	SignalSettingsReached
	SignalEmailTaken
)

// String returns a short name for logging.
func (s PageSignal) String() string {
	switch s {
	case SignalPersonalInfoForm:
		return "personal-info-form"
	case SignalPasswordForm:
		return "password-form"
	case SignalChallengeWidget:
		return "challenge-widget"
	case SignalCodeEntry:
		return "code-entry"
	case SignalSettingsReached:
		return "settings-reached"
	case SignalEmailTaken:
		return "email-taken"
	default:
		return "none"
	}
}

// Cookie is a read-only view over one browser cookie.
type Cookie struct {
	Name  string
	Value string
}

// Element is a handle to one located page element.
type Element interface {
	// Click dispatches a click on the element.
	Click(ctx context.Context) error

	// Input types the given text into the element.
	Input(ctx context.Context, text string) error

	// Text returns the element's visible text content.
	Text(ctx context.Context) (string, error)
}

// BrowserPage is the browser automation capability the signup flow is
// driven through. Selector syntax is opaque to the pipeline; the
// implementation decides how to interpret it. A page is exclusively owned
// by one provisioning run and must be closed on every exit path.
type BrowserPage interface {
	// Navigate loads the given URL and waits for the load to settle.
	Navigate(ctx context.Context, url string) error

	// Find locates an element, waiting up to timeout for it to become
	// visible. Returns ErrElementNotFound if it never does.
	Find(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Cookies returns the session's current cookie jar.
	Cookies(ctx context.Context) ([]Cookie, error)

	// RunScript evaluates a JavaScript expression in the page and returns
	// its string result.
	RunScript(ctx context.Context, js string) (string, error)

	// Close releases the underlying browser session.
	Close() error
}
