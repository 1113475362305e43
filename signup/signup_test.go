package signup

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseat-project/reseat/identity"
	"github.com/reseat-project/reseat/interfaces"
)

// fakePage scripts a browser session. Selectors listed in visible are
// findable; onClick/onInput hooks let tests advance the page state in
// response to interactions.
type fakePage struct {
	visible map[string]bool
	texts   map[string]string
	cookies []interfaces.Cookie

	finds       map[string]int
	clicks      map[string]int
	inputs      map[string]string
	navigations []string
	closed      bool

	onClick func(selector string)
	onInput func(selector, text string)
}

func newFakePage() *fakePage {
	return &fakePage{
		visible: make(map[string]bool),
		texts:   make(map[string]string),
		finds:   make(map[string]int),
		clicks:  make(map[string]int),
		inputs:  make(map[string]string),
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) Find(ctx context.Context, selector string, timeout time.Duration) (interfaces.Element, error) {
	p.finds[selector]++
	if !p.visible[selector] {
		return nil, interfaces.ErrElementNotFound
	}
	return &fakeElement{page: p, selector: selector}, nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]interfaces.Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) RunScript(ctx context.Context, js string) (string, error) {
	return "", nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeElement struct {
	page     *fakePage
	selector string
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.page.clicks[e.selector]++
	if e.page.onClick != nil {
		e.page.onClick(e.selector)
	}
	return nil
}

func (e *fakeElement) Input(ctx context.Context, text string) error {
	e.page.inputs[e.selector] += text
	if e.page.onInput != nil {
		e.page.onInput(e.selector, text)
	}
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.page.texts[e.selector], nil
}

type fakeCodeSource struct {
	code  string
	err   error
	calls int
}

func (s *fakeCodeSource) GetCode(ctx context.Context, address string) (string, error) {
	s.calls++
	return s.code, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func noSleep(time.Duration) {}

func minJitter(min, max time.Duration) time.Duration { return min }

func testResolver(page *fakePage) *ChallengeResolver {
	sel := DefaultSelectors()
	probe := NewProbe(page, sel, time.Millisecond)
	r := NewChallengeResolver(page, probe, sel, discardLogger())
	r.sleep = noSleep
	r.jitter = minJitter
	return r
}

func testOrchestrator(page *fakePage, codes CodeSource) *Orchestrator {
	o := New(Config{
		LoginURL:    "https://svc.example/login",
		SignupURL:   "https://svc.example/signup",
		SettingsURL: "https://svc.example/settings",
	}, page, codes, discardLogger())
	o.sleep = noSleep
	o.jitter = minJitter
	o.challenge.sleep = noSleep
	o.challenge.jitter = minJitter
	o.extractor.sleep = noSleep
	return o
}

func TestChallengeResolverExhaustsBudget(t *testing.T) {
	page := newFakePage()
	page.visible[`#cf-turnstile`] = true

	r := testResolver(page)
	ok := r.Resolve(context.Background())

	assert.False(t, ok)
	assert.Equal(t, 2, page.clicks[`#cf-turnstile`], "one click per attempt")
}

func TestChallengeResolverNoWidgetTerminalPresent(t *testing.T) {
	page := newFakePage()
	page.visible[`input[name="password"]`] = true

	r := testResolver(page)
	ok := r.Resolve(context.Background())

	assert.True(t, ok)
	assert.Equal(t, 1, page.finds[`#cf-turnstile`])
	assert.Zero(t, page.clicks[`#cf-turnstile`])
}

func TestChallengeResolverClickClears(t *testing.T) {
	page := newFakePage()
	page.visible[`#cf-turnstile`] = true
	page.onClick = func(selector string) {
		if selector == `#cf-turnstile` {
			page.visible[`input[data-index="0"]`] = true
		}
	}

	r := testResolver(page)
	ok := r.Resolve(context.Background())

	assert.True(t, ok)
	assert.Equal(t, 1, page.clicks[`#cf-turnstile`])
}

func TestSplitSessionCookie(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		token   string
		wantErr bool
	}{
		{name: "url escaped delimiter", value: "cksm%3A%3AeyJhbGci", token: "eyJhbGci"},
		{name: "literal delimiter", value: "cksm::eyJhbGci", token: "eyJhbGci"},
		{name: "no delimiter", value: "eyJhbGci", wantErr: true},
		{name: "empty token", value: "cksm%3A%3A", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := splitSessionCookie(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestCredentialExtractorRetriesThenFails(t *testing.T) {
	page := newFakePage()
	e := NewCredentialExtractor(page, discardLogger())

	var sleeps int
	e.sleep = func(time.Duration) { sleeps++ }

	_, err := e.Extract(context.Background())
	require.ErrorIs(t, err, interfaces.ErrTokenNotFound)
	assert.Equal(t, 2, sleeps, "no sleep after the final attempt")
}

func TestCredentialExtractorFindsToken(t *testing.T) {
	page := newFakePage()
	page.cookies = []interfaces.Cookie{
		{Name: "other", Value: "x"},
		{Name: SessionCookieName, Value: "cksm%3A%3Athe-token"},
	}
	e := NewCredentialExtractor(page, discardLogger())
	e.sleep = noSleep

	token, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "the-token", token)
}

func TestOrchestratorHappyPath(t *testing.T) {
	page := newFakePage()
	page.visible[`input[name="first_name"]`] = true
	page.visible[`input[name="last_name"]`] = true
	page.visible[`input[name="email"]`] = true
	page.visible[`button[type="submit"]`] = true

	submitClicks := 0
	page.onClick = func(selector string) {
		if selector != `button[type="submit"]` {
			return
		}
		submitClicks++
		switch submitClicks {
		case 1:
			page.visible[`input[name="password"]`] = true
		case 2:
			page.visible[`input[name="password"]`] = false
			for _, sel := range []string{
				`input[data-index="0"]`, `input[data-index="1"]`,
				`input[data-index="2"]`, `input[data-index="3"]`,
				`input[data-index="4"]`, `input[data-index="5"]`,
			} {
				page.visible[sel] = true
			}
		}
	}
	page.onInput = func(selector, text string) {
		if selector == `input[data-index="5"]` {
			page.visible[`//*[contains(text(), "Account Settings")]`] = true
		}
	}
	page.cookies = []interfaces.Cookie{
		{Name: SessionCookieName, Value: "cksm%3A%3Asession-token"},
	}

	codes := &fakeCodeSource{code: "482915"}
	o := testOrchestrator(page, codes)

	ident := identity.ProvisioningIdentity{
		FirstName:    "Ada",
		LastName:     "Quinn",
		EmailAddress: "adaquinn1234@163.com",
		Password:     "s3cr3tpassw0rd!!",
	}
	sess, err := o.Run(context.Background(), ident)
	require.NoError(t, err)

	assert.Equal(t, interfaces.StageTokenExtracted, sess.Stage)
	assert.Equal(t, "session-token", sess.Token)
	assert.Equal(t, 1, codes.calls, "code fetched exactly once")
	assert.Equal(t, "Ada", page.inputs[`input[name="first_name"]`])
	assert.Equal(t, "adaquinn1234@163.com", page.inputs[`input[name="email"]`])
	assert.Equal(t, "s3cr3tpassw0rd!!", page.inputs[`input[name="password"]`])
	assert.Equal(t, "4", page.inputs[`input[data-index="0"]`])
	assert.Equal(t, "5", page.inputs[`input[data-index="5"]`])
	assert.Contains(t, page.navigations, "https://svc.example/settings")
}

func TestOrchestratorEmailTaken(t *testing.T) {
	page := newFakePage()
	page.visible[`input[name="first_name"]`] = true
	page.visible[`input[name="last_name"]`] = true
	page.visible[`input[name="email"]`] = true
	page.visible[`button[type="submit"]`] = true
	page.visible[`input[name="password"]`] = true
	page.visible[`//*[contains(text(), "This email is not available")]`] = true

	o := testOrchestrator(page, &fakeCodeSource{})

	sess, err := o.Run(context.Background(), identity.ProvisioningIdentity{
		FirstName: "Ada", LastName: "Quinn",
		EmailAddress: "taken@163.com", Password: "pw",
	})
	require.ErrorIs(t, err, interfaces.ErrEmailUnavailable)
	assert.Equal(t, interfaces.StagePasswordSubmitted, sess.Stage)
	assert.Equal(t, interfaces.StagePasswordSubmitted, interfaces.StageOf(err))
}

func TestOrchestratorChallengeExhausted(t *testing.T) {
	page := newFakePage()
	page.visible[`input[name="first_name"]`] = true
	page.visible[`input[name="last_name"]`] = true
	page.visible[`input[name="email"]`] = true
	page.visible[`button[type="submit"]`] = true
	page.visible[`#cf-turnstile`] = true

	o := testOrchestrator(page, &fakeCodeSource{})

	sess, err := o.Run(context.Background(), identity.ProvisioningIdentity{
		FirstName: "Ada", LastName: "Quinn",
		EmailAddress: "a@163.com", Password: "pw",
	})
	require.ErrorIs(t, err, interfaces.ErrChallengeExhausted)
	assert.Equal(t, interfaces.StagePersonalInfoSubmitted, sess.Stage)
}

func TestOrchestratorCancelDuringVerification(t *testing.T) {
	page := newFakePage()
	page.visible[`input[name="first_name"]`] = true
	page.visible[`input[name="last_name"]`] = true
	page.visible[`input[name="email"]`] = true
	page.visible[`button[type="submit"]`] = true
	page.visible[`input[name="password"]`] = true

	ctx, cancel := context.WithCancel(context.Background())
	o := testOrchestrator(page, &fakeCodeSource{})
	polls := 0
	o.sleep = func(time.Duration) {
		polls++
		if polls > 3 {
			cancel()
		}
	}

	sess, err := o.Run(ctx, identity.ProvisioningIdentity{
		FirstName: "Ada", LastName: "Quinn",
		EmailAddress: "a@163.com", Password: "pw",
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, interfaces.StageAwaitingEmailVerification, sess.Stage)
}
