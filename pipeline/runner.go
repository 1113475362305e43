package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reseat-project/reseat/browser"
	"github.com/reseat-project/reseat/config"
	"github.com/reseat-project/reseat/identity"
	"github.com/reseat-project/reseat/idstore"
	"github.com/reseat-project/reseat/interfaces"
	"github.com/reseat-project/reseat/mailcode"
	"github.com/reseat-project/reseat/signup"
)

// PageFactory opens a fresh browser session for one run.
type PageFactory func(ctx context.Context) (interfaces.BrowserPage, error)

// Result is the outcome of one provisioning run.
type Result struct {
	Email    string
	Password string
	Token    string

	// Device holds the freshly written device identity. Zero when the
	// run failed before the reset.
	Device identity.DeviceIdentitySet

	// Stage is how far the run progressed.
	Stage interfaces.Stage
}

// Runner executes provisioning runs against one configuration.
type Runner struct {
	cfg *config.Config
	log *slog.Logger

	gen     *identity.Generator
	codes   signup.CodeSource
	store   *idstore.AdvancedStore
	newPage PageFactory
}

// New builds a Runner from the configuration. The browser factory can be
// replaced through NewWithPageFactory for tests.
func New(cfg *config.Config, log *slog.Logger) (*Runner, error) {
	factory := func(ctx context.Context) (interfaces.BrowserPage, error) {
		return browser.NewPage(ctx, browser.Options{Headless: cfg.Headless})
	}
	return NewWithPageFactory(cfg, log, factory)
}

// NewWithPageFactory is New with an explicit browser factory.
func NewWithPageFactory(cfg *config.Config, log *slog.Logger, factory PageFactory) (*Runner, error) {
	gen, err := identity.NewGenerator(cfg.Domains)
	if err != nil {
		return nil, err
	}

	poller := mailcode.NewPoller(mailcode.Options{
		Mailbox:      cfg.MailboxConfig(),
		Protocol:     mailcode.Protocol(cfg.Mailbox.Protocol),
		NotifySender: cfg.Mailbox.NotifySender,
	}, log)

	return &Runner{
		cfg:     cfg,
		log:     log,
		gen:     gen,
		codes:   poller,
		store:   idstore.NewAdvanced(log, cfg.ProductDocPath),
		newPage: factory,
	}, nil
}

// Provision runs the full pipeline: generate an identity, drive the
// remote signup flow to a session token, then rewrite the local device
// identity. The browser session is closed on every exit path.
func (r *Runner) Provision(ctx context.Context) (*Result, error) {
	ident, err := r.gen.Generate()
	if err != nil {
		return nil, interfaces.WrapStage(interfaces.StageStarted, err)
	}
	res := &Result{
		Email:    ident.EmailAddress,
		Password: ident.Password,
		Stage:    interfaces.StageStarted,
	}

	page, err := r.newPage(ctx)
	if err != nil {
		return res, interfaces.WrapStage(interfaces.StageStarted,
			fmt.Errorf("opening browser session: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.log.Warn("Could not close browser session", "err", err)
		}
	}()

	orch := signup.New(signup.Config{
		LoginURL:    r.cfg.Service.LoginURL,
		SignupURL:   r.cfg.Service.SignupURL,
		SettingsURL: r.cfg.Service.SettingsURL,
	}, page, r.codes, r.log)

	sess, err := orch.Run(ctx, ident)
	res.Stage = sess.Stage
	if err != nil {
		return res, err
	}
	res.Token = sess.Token

	device, err := r.ResetIdentity()
	if err != nil {
		return res, interfaces.WrapStage(sess.Stage, err)
	}
	res.Device = device

	r.log.Info("Provisioning run complete",
		slog.String("email", res.Email),
		slog.String("stage", string(res.Stage)))
	return res, nil
}

// ResetIdentity rewrites the local device identity document with fresh
// values, independent of any signup run.
func (r *Runner) ResetIdentity() (identity.DeviceIdentitySet, error) {
	path := r.cfg.IdentityDocPath
	if path == "" {
		var err error
		path, err = idstore.DefaultDocumentPath()
		if err != nil {
			return identity.DeviceIdentitySet{}, fmt.Errorf("resolving identity document path: %w", err)
		}
	}
	return r.store.Reset(path)
}
