package mailcode

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/reseat-project/reseat/interfaces"
	"github.com/reseat-project/reseat/metrics"
)

// Protocol selects the retrieval strategy.
type Protocol string

const (
	ProtocolIMAP Protocol = "IMAP"
	ProtocolPOP3 Protocol = "POP3"
)

// dateSearchDomains lists consumer providers that cannot reliably filter
// by recipient header. Mailbox users on these domains get the provider
// identification handshake and the date-based search fallback.
var dateSearchDomains = []string{"@163.com", "@126.com", "@yeah.net"}

// needsDateSearch reports whether the mailbox user's domain is on the
// date-search allowlist.
func needsDateSearch(user string) bool {
	for _, domain := range dateSearchDomains {
		if strings.HasSuffix(user, domain) {
			return true
		}
	}
	return false
}

// How many of the most recent messages the POP3 strategy inspects.
const statelessScanDepth = 10

// POP3 connection pacing.
const (
	connectJitterMin = 500 * time.Millisecond
	connectJitterMax = 2 * time.Second
	retryJitterMin   = 2 * time.Second
	retryJitterMax   = 5 * time.Second
	errorJitterMin   = 2 * time.Second
	errorJitterMax   = 7 * time.Second
)

// Options configures a Poller. Zero retry fields take the defaults
// documented on each field.
type Options struct {
	// Mailbox holds the connection parameters for both protocols.
	Mailbox interfaces.MailboxConfig

	// Protocol selects the retrieval strategy. Defaults to POP3.
	Protocol Protocol

	// NotifySender is the address verification mail is expected from.
	// Only the POP3 strategy filters on it.
	NotifySender string

	// OuterMax bounds full reconnect-and-retry cycles. Default 5.
	OuterMax int

	// OuterInterval separates outer cycles. Default 60s.
	OuterInterval time.Duration

	// InnerMax bounds re-search attempts within one cycle. Default 20.
	InnerMax int

	// InnerDelay separates inner attempts of the IMAP strategy.
	// Default 3s.
	InnerDelay time.Duration
}

func (o *Options) applyDefaults() {
	if o.Protocol == "" {
		o.Protocol = ProtocolPOP3
	}
	if o.OuterMax == 0 {
		o.OuterMax = 5
	}
	if o.OuterInterval == 0 {
		o.OuterInterval = 60 * time.Second
	}
	if o.InnerMax == 0 {
		o.InnerMax = 20
	}
	if o.InnerDelay == 0 {
		o.InnerDelay = 3 * time.Second
	}
}

// Poller retrieves a one-time verification code from the configured
// mailbox. One Poller serves one provisioning run; polls against a shared
// mailbox must not run concurrently.
type Poller struct {
	opts Options
	log  *slog.Logger

	dialStateful  interfaces.StatefulDialer
	dialStateless interfaces.StatelessDialer
	sleep         func(time.Duration)
	jitter        func(min, max time.Duration) time.Duration
}

// NewPoller creates a Poller using the real IMAP and POP3 dialers.
func NewPoller(opts Options, log *slog.Logger) *Poller {
	opts.applyDefaults()
	return &Poller{
		opts:          opts,
		log:           log,
		dialStateful:  DialStateful,
		dialStateless: DialStateless,
		sleep:         time.Sleep,
		jitter:        randomDuration,
	}
}

func randomDuration(min, max time.Duration) time.Duration {
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// GetCode polls the mailbox until a verification code addressed to
// address is found. It returns ErrVerificationTimeout once the outer
// budget is exhausted; connection errors inside a cycle are logged and
// treated as transient.
func (p *Poller) GetCode(ctx context.Context, address string) (string, error) {
	for outer := 1; outer <= p.opts.OuterMax; outer++ {
		p.log.Info("Polling mailbox for verification code",
			slog.Int("cycle", outer),
			slog.Int("maxCycles", p.opts.OuterMax),
			slog.String("protocol", string(p.opts.Protocol)))

		var code string
		var err error
		if p.opts.Protocol == ProtocolIMAP {
			code, err = p.pollStateful(ctx, address)
		} else {
			code, err = p.pollStateless(ctx)
		}
		if err != nil {
			p.log.Warn("Mailbox polling cycle failed", slog.Int("cycle", outer), "err", err)
		}
		if code != "" {
			metrics.VerificationCodes.Inc()
			p.log.Info("Verification code received", slog.Int("cycle", outer))
			return code, nil
		}

		if outer < p.opts.OuterMax {
			p.sleep(p.opts.OuterInterval)
		}
	}
	return "", fmt.Errorf("%w: %d polling cycles exhausted", interfaces.ErrVerificationTimeout, p.opts.OuterMax)
}

// pollStateful runs one outer cycle of the IMAP strategy. Inner attempts
// are consumed only while the search comes back empty; once messages are
// found they are scanned exactly once and the cycle ends.
func (p *Poller) pollStateful(ctx context.Context, address string) (string, error) {
	for attempt := 1; attempt <= p.opts.InnerMax; attempt++ {
		if attempt > 1 {
			p.sleep(p.opts.InnerDelay)
		}
		code, retry, err := p.statefulAttempt(ctx, address)
		if err != nil {
			return "", err
		}
		if code != "" || !retry {
			return code, nil
		}
	}
	return "", nil
}

func (p *Poller) statefulAttempt(ctx context.Context, address string) (code string, retry bool, err error) {
	session, err := p.dialStateful(ctx, p.opts.Mailbox)
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err := session.Logout(); err != nil {
			p.log.Debug("Mailbox logout failed", "err", err)
		}
	}()

	dateMode := needsDateSearch(p.opts.Mailbox.User)
	if dateMode {
		if err := session.Identify(ctx); err != nil {
			return "", false, fmt.Errorf("provider identification handshake failed: %w", err)
		}
	}
	if err := session.SelectFolder(ctx, p.opts.Mailbox.Folder); err != nil {
		return "", false, fmt.Errorf("could not select folder: %w", err)
	}

	crit := interfaces.MailSearch{Recipient: address}
	if dateMode {
		crit = interfaces.MailSearch{UnseenToday: true}
	}
	ids, err := session.Search(ctx, crit)
	if err != nil {
		return "", false, fmt.Errorf("mailbox search failed: %w", err)
	}
	if len(ids) == 0 {
		return "", true, nil
	}
	p.log.Debug("Mailbox search matched", slog.Int("messages", len(ids)))

	// Newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		raw, err := session.Fetch(ctx, ids[i])
		if err != nil {
			p.log.Debug("Could not fetch message", slog.Any("id", ids[i]), "err", err)
			continue
		}
		msg, err := parseMessage(raw)
		if err != nil {
			p.log.Debug("Could not parse message", slog.Any("id", ids[i]), "err", err)
			continue
		}

		// The date search is coarser than the recipient search; re-check
		// the recipient before trusting the message.
		if dateMode && !msg.AddressedTo(address) {
			continue
		}

		code := ExtractCode(msg.Body)
		if code == "" {
			continue
		}

		// Extraction consumes the message.
		if err := session.MarkDeleted(ctx, ids[i]); err != nil {
			p.log.Warn("Could not flag message deleted", slog.Any("id", ids[i]), "err", err)
		} else if err := session.Expunge(ctx); err != nil {
			p.log.Warn("Could not expunge mailbox", "err", err)
		}
		return code, false, nil
	}
	return "", false, nil
}

// pollStateless runs one outer cycle of the POP3 strategy. Every inner
// attempt reconnects, with jitter before each connection to avoid
// hammering the server.
func (p *Poller) pollStateless(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= p.opts.InnerMax; attempt++ {
		p.sleep(p.jitter(connectJitterMin, connectJitterMax))

		code, err := p.statelessAttempt(ctx)
		if err != nil {
			p.sleep(p.jitter(errorJitterMin, errorJitterMax))
			return "", err
		}
		if code != "" {
			return code, nil
		}

		if attempt < p.opts.InnerMax {
			p.sleep(p.jitter(retryJitterMin, retryJitterMax))
		}
	}
	return "", nil
}

func (p *Poller) statelessAttempt(ctx context.Context) (string, error) {
	conn, err := p.dialStateless(ctx, p.opts.Mailbox)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			p.log.Debug("Mailbox quit failed", "err", err)
		}
	}()

	count, err := conn.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("could not list mailbox: %w", err)
	}

	low := count - statelessScanDepth + 1
	if low < 1 {
		low = 1
	}
	for i := count; i >= low; i-- {
		raw, err := conn.Retrieve(ctx, i)
		if err != nil {
			p.log.Debug("Could not retrieve message", slog.Int("index", i), "err", err)
			continue
		}
		msg, err := parseMessage(raw)
		if err != nil {
			p.log.Debug("Could not parse message", slog.Int("index", i), "err", err)
			continue
		}
		if !strings.Contains(msg.From, p.opts.NotifySender) {
			continue
		}
		if code := ExtractCode(msg.Body); code != "" {
			return code, nil
		}
	}
	return "", nil
}
