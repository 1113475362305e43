package signup

import (
	"context"
	"time"

	"github.com/reseat-project/reseat/interfaces"
)

// Selectors maps the pipeline's page signals and form fields onto the
// remote service's current markup. The strings are opaque to this
// package; the browser capability decides how to interpret them.
type Selectors struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Submit    string

	// Challenge is the bot-challenge widget's anchor element.
	Challenge string

	// CodeDigit is a format string taking the digit index 0..5.
	CodeDigit string

	// UsageQuota locates the usage figure on the settings page.
	UsageQuota string

	Signals map[interfaces.PageSignal]string
}

// DefaultSelectors returns selectors for the service's current markup.
func DefaultSelectors() Selectors {
	return Selectors{
		FirstName:  `input[name="first_name"]`,
		LastName:   `input[name="last_name"]`,
		Email:      `input[name="email"]`,
		Password:   `input[name="password"]`,
		Submit:     `button[type="submit"]`,
		Challenge:  `#cf-turnstile`,
		CodeDigit:  `input[data-index="%d"]`,
		UsageQuota: `//span[contains(@class, "font-mono")]`,
		Signals: map[interfaces.PageSignal]string{
			interfaces.SignalPersonalInfoForm: `input[name="first_name"]`,
			interfaces.SignalPasswordForm:     `input[name="password"]`,
			interfaces.SignalChallengeWidget:  `#cf-turnstile`,
			interfaces.SignalCodeEntry:        `input[data-index="0"]`,
			interfaces.SignalSettingsReached:  `//*[contains(text(), "Account Settings")]`,
			interfaces.SignalEmailTaken:       `//*[contains(text(), "This email is not available")]`,
		},
	}
}

// terminalSignals are the markers that end the verification wait. The
// password form reappearing means the flow is still in progress, but it
// is probed with the others so the challenge resolver can use it as
// evidence of page movement.
var terminalSignals = []interfaces.PageSignal{
	interfaces.SignalSettingsReached,
	interfaces.SignalCodeEntry,
	interfaces.SignalPasswordForm,
}

// Probe queries page signals through the browser capability. Signals are
// checked in a fixed priority order so a page presenting several markers
// resolves deterministically.
type Probe struct {
	page      interfaces.BrowserPage
	selectors Selectors
	timeout   time.Duration

	order []interfaces.PageSignal
}

// NewProbe creates a Probe with the given per-signal lookup timeout.
func NewProbe(page interfaces.BrowserPage, selectors Selectors, timeout time.Duration) *Probe {
	return &Probe{
		page:      page,
		selectors: selectors,
		timeout:   timeout,
		order: []interfaces.PageSignal{
			interfaces.SignalSettingsReached,
			interfaces.SignalCodeEntry,
			interfaces.SignalPasswordForm,
			interfaces.SignalEmailTaken,
			interfaces.SignalChallengeWidget,
			interfaces.SignalPersonalInfoForm,
		},
	}
}

// Detect returns the first signal of the given set currently present on
// the page, or SignalNone. With no arguments every known signal is
// probed.
func (p *Probe) Detect(ctx context.Context, signals ...interfaces.PageSignal) interfaces.PageSignal {
	for _, sig := range p.order {
		if len(signals) > 0 && !containsSignal(signals, sig) {
			continue
		}
		selector, ok := p.selectors.Signals[sig]
		if !ok {
			continue
		}
		if _, err := p.page.Find(ctx, selector, p.timeout); err == nil {
			return sig
		}
	}
	return interfaces.SignalNone
}

func containsSignal(signals []interfaces.PageSignal, sig interfaces.PageSignal) bool {
	for _, s := range signals {
		if s == sig {
			return true
		}
	}
	return false
}
