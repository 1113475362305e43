package signup

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/reseat-project/reseat/identity"
	"github.com/reseat-project/reseat/interfaces"
)

// CodeSource produces the verification code sent to an address. The
// mailbox poller satisfies this.
type CodeSource interface {
	GetCode(ctx context.Context, address string) (string, error)
}

// Config carries the orchestrator's tunables. Zero values are replaced
// with defaults.
type Config struct {
	LoginURL    string
	SignupURL   string
	SettingsURL string

	Selectors Selectors

	// FindTimeout bounds individual element lookups. Default 5s.
	FindTimeout time.Duration

	// PollInterval paces the verification wait loop. Default 2s.
	PollInterval time.Duration

	// Keystroke and field pacing, mimicking human typing. Defaults
	// 100-300ms per keystroke and 1-3s between fields.
	KeystrokeDelayMin time.Duration
	KeystrokeDelayMax time.Duration
	FieldDelayMin     time.Duration
	FieldDelayMax     time.Duration

	// SettleMin and SettleMax bound the pause before reading the settings
	// page. Defaults 3s and 6s.
	SettleMin time.Duration
	SettleMax time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Selectors.Signals == nil {
		cfg.Selectors = DefaultSelectors()
	}
	if cfg.FindTimeout == 0 {
		cfg.FindTimeout = 5 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.KeystrokeDelayMin == 0 {
		cfg.KeystrokeDelayMin = 100 * time.Millisecond
	}
	if cfg.KeystrokeDelayMax == 0 {
		cfg.KeystrokeDelayMax = 300 * time.Millisecond
	}
	if cfg.FieldDelayMin == 0 {
		cfg.FieldDelayMin = 1 * time.Second
	}
	if cfg.FieldDelayMax == 0 {
		cfg.FieldDelayMax = 3 * time.Second
	}
	if cfg.SettleMin == 0 {
		cfg.SettleMin = 3 * time.Second
	}
	if cfg.SettleMax == 0 {
		cfg.SettleMax = 6 * time.Second
	}
}

// Session is the observable state of one provisioning run.
type Session struct {
	Identity identity.ProvisioningIdentity
	Stage    interfaces.Stage
	Token    string
}

// Orchestrator drives the remote signup flow end to end: form
// submission, bot-challenge checkpoints, email verification, and token
// extraction.
type Orchestrator struct {
	cfg       Config
	page      interfaces.BrowserPage
	codes     CodeSource
	probe     *Probe
	challenge *ChallengeResolver
	extractor *CredentialExtractor
	log       *slog.Logger

	sleep  func(time.Duration)
	jitter func(min, max time.Duration) time.Duration
}

// New creates an Orchestrator over the given page and code source.
func New(cfg Config, page interfaces.BrowserPage, codes CodeSource, log *slog.Logger) *Orchestrator {
	cfg.applyDefaults()
	probe := NewProbe(page, cfg.Selectors, cfg.FindTimeout)
	return &Orchestrator{
		cfg:       cfg,
		page:      page,
		codes:     codes,
		probe:     probe,
		challenge: NewChallengeResolver(page, probe, cfg.Selectors, log),
		extractor: NewCredentialExtractor(page, log),
		log:       log,
		sleep:     time.Sleep,
		jitter:    randomDuration,
	}
}

// Run executes the signup flow for the given identity. The returned
// Session records the stage reached; on failure the error carries the
// stage it occurred in.
func (o *Orchestrator) Run(ctx context.Context, ident identity.ProvisioningIdentity) (*Session, error) {
	sess := &Session{Identity: ident, Stage: interfaces.StageStarted}

	run := func(step func(context.Context, *Session) error) error {
		if err := step(ctx, sess); err != nil {
			return interfaces.WrapStage(sess.Stage, err)
		}
		return nil
	}

	steps := []func(context.Context, *Session) error{
		o.openSignupPage,
		o.submitPersonalInfo,
		o.submitPassword,
		o.awaitVerification,
		o.finish,
	}
	for _, step := range steps {
		if err := run(step); err != nil {
			return sess, err
		}
	}
	return sess, nil
}

// openSignupPage warms the session on the login page before loading the
// signup form; arriving cold on the form trips the bot heuristics more
// often.
func (o *Orchestrator) openSignupPage(ctx context.Context, sess *Session) error {
	o.log.Info("Opening signup flow", slog.String("email", sess.Identity.EmailAddress))
	if err := o.page.Navigate(ctx, o.cfg.LoginURL); err != nil {
		return fmt.Errorf("navigating to login page: %w", err)
	}
	if err := o.page.Navigate(ctx, o.cfg.SignupURL); err != nil {
		return fmt.Errorf("navigating to signup page: %w", err)
	}
	return nil
}

func (o *Orchestrator) submitPersonalInfo(ctx context.Context, sess *Session) error {
	fields := []struct {
		selector string
		value    string
	}{
		{o.cfg.Selectors.FirstName, sess.Identity.FirstName},
		{o.cfg.Selectors.LastName, sess.Identity.LastName},
		{o.cfg.Selectors.Email, sess.Identity.EmailAddress},
	}
	for _, f := range fields {
		if err := o.fillField(ctx, f.selector, f.value); err != nil {
			return err
		}
	}
	if err := o.clickSubmit(ctx); err != nil {
		return err
	}
	sess.Stage = interfaces.StagePersonalInfoSubmitted
	o.log.Info("Personal info submitted")

	if !o.challenge.Resolve(ctx) {
		return interfaces.ErrChallengeExhausted
	}
	return nil
}

// submitPassword fills the password form. The service occasionally skips
// it and goes straight to verification, so its absence is not an error.
func (o *Orchestrator) submitPassword(ctx context.Context, sess *Session) error {
	el, err := o.page.Find(ctx, o.cfg.Selectors.Password, o.cfg.FindTimeout)
	if err != nil {
		o.log.Debug("No password form presented, continuing")
	} else {
		o.sleep(o.jitter(o.cfg.FieldDelayMin, o.cfg.FieldDelayMax))
		if err := o.typeInto(ctx, el, sess.Identity.Password); err != nil {
			return fmt.Errorf("entering password: %w", err)
		}
		if err := o.clickSubmit(ctx); err != nil {
			return err
		}
	}
	sess.Stage = interfaces.StagePasswordSubmitted
	o.log.Info("Password submitted")

	if sig := o.probe.Detect(ctx, interfaces.SignalEmailTaken); sig == interfaces.SignalEmailTaken {
		return interfaces.ErrEmailUnavailable
	}
	if !o.challenge.Resolve(ctx) {
		return interfaces.ErrChallengeExhausted
	}
	return nil
}

// awaitVerification loops until the settings page is reached, entering
// the emailed code when the code-entry form appears. The loop is bounded
// only by ctx; the mailbox poller's own budget is what limits the wait
// in practice.
func (o *Orchestrator) awaitVerification(ctx context.Context, sess *Session) error {
	sess.Stage = interfaces.StageAwaitingEmailVerification
	o.log.Info("Waiting for email verification")

	codeEntered := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch o.probe.Detect(ctx, terminalSignals...) {
		case interfaces.SignalSettingsReached:
			sess.Stage = interfaces.StageVerified
			o.log.Info("Email verified, settings page reached")
			return nil

		case interfaces.SignalCodeEntry:
			if codeEntered {
				break
			}
			code, err := o.codes.GetCode(ctx, sess.Identity.EmailAddress)
			if err != nil {
				return err
			}
			if err := o.enterCode(ctx, code); err != nil {
				return err
			}
			codeEntered = true
			if !o.challenge.Resolve(ctx) {
				return interfaces.ErrChallengeExhausted
			}

		case interfaces.SignalPasswordForm:
			o.log.Debug("Still on password form, waiting")
		}

		o.sleep(o.cfg.PollInterval)
	}
}

// finish reads the usage quota off the settings page and extracts the
// session token.
func (o *Orchestrator) finish(ctx context.Context, sess *Session) error {
	o.sleep(o.jitter(o.cfg.SettleMin, o.cfg.SettleMax))
	o.readUsageQuota(ctx)

	token, err := o.extractor.Extract(ctx)
	if err != nil {
		return err
	}
	sess.Token = token
	sess.Stage = interfaces.StageTokenExtracted
	o.log.Info("Session token extracted")
	return nil
}

func (o *Orchestrator) fillField(ctx context.Context, selector, value string) error {
	el, err := o.page.Find(ctx, selector, o.cfg.FindTimeout)
	if err != nil {
		return fmt.Errorf("locating field %s: %w", selector, err)
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("focusing field %s: %w", selector, err)
	}
	if err := o.typeInto(ctx, el, value); err != nil {
		return fmt.Errorf("filling field %s: %w", selector, err)
	}
	o.sleep(o.jitter(o.cfg.FieldDelayMin, o.cfg.FieldDelayMax))
	return nil
}

// typeInto sends the value one rune at a time with keystroke jitter.
func (o *Orchestrator) typeInto(ctx context.Context, el interfaces.Element, value string) error {
	for _, r := range value {
		if err := el.Input(ctx, string(r)); err != nil {
			return err
		}
		o.sleep(o.jitter(o.cfg.KeystrokeDelayMin, o.cfg.KeystrokeDelayMax))
	}
	return nil
}

func (o *Orchestrator) clickSubmit(ctx context.Context) error {
	el, err := o.page.Find(ctx, o.cfg.Selectors.Submit, o.cfg.FindTimeout)
	if err != nil {
		return fmt.Errorf("locating submit button: %w", err)
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("submitting form: %w", err)
	}
	return nil
}

// enterCode types the six-digit code into the per-digit inputs.
func (o *Orchestrator) enterCode(ctx context.Context, code string) error {
	o.log.Info("Entering verification code")
	for i, digit := range code {
		selector := fmt.Sprintf(o.cfg.Selectors.CodeDigit, i)
		el, err := o.page.Find(ctx, selector, o.cfg.FindTimeout)
		if err != nil {
			return fmt.Errorf("locating code input %d: %w", i, err)
		}
		if err := el.Input(ctx, string(digit)); err != nil {
			return fmt.Errorf("entering code digit %d: %w", i, err)
		}
		o.sleep(o.jitter(o.cfg.KeystrokeDelayMin, o.cfg.KeystrokeDelayMax))
	}
	return nil
}

// readUsageQuota logs the account's usage figure. Purely informational;
// failures are swallowed.
func (o *Orchestrator) readUsageQuota(ctx context.Context) {
	if err := o.page.Navigate(ctx, o.cfg.SettingsURL); err != nil {
		o.log.Debug("Could not open settings page", "err", err)
		return
	}
	el, err := o.page.Find(ctx, o.cfg.Selectors.UsageQuota, o.cfg.FindTimeout)
	if err != nil {
		o.log.Debug("Usage figure not found", "err", err)
		return
	}
	text, err := el.Text(ctx)
	if err != nil {
		o.log.Debug("Could not read usage figure", "err", err)
		return
	}
	used, limit, found := strings.Cut(strings.TrimSpace(text), "/")
	if !found {
		o.log.Debug("Unexpected usage figure format", slog.String("text", text))
		return
	}
	o.log.Info("Account usage",
		slog.String("used", strings.TrimSpace(used)),
		slog.String("limit", strings.TrimSpace(limit)))
}

// randomDuration returns a uniformly random duration in [min, max).
func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}
