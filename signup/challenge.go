package signup

import (
	"context"
	"log/slog"
	"time"

	"github.com/reseat-project/reseat/interfaces"
)

// Challenge interaction pacing, mimicking human latency.
const (
	challengeProbeTimeout = 2 * time.Second
	preClickDelayMin      = 1 * time.Second
	preClickDelayMax      = 3 * time.Second
	postClickDelay        = 2 * time.Second
)

// ChallengeResolver detects and attempts to clear the bot-challenge
// checkpoint the remote service may interpose after any form submission.
type ChallengeResolver struct {
	page      interfaces.BrowserPage
	probe     *Probe
	selectors Selectors
	log       *slog.Logger

	// MaxRetries bounds resolution attempts. Default 2. Exhaustion is
	// fatal for the whole pipeline; there is no higher-level retry.
	MaxRetries int

	// DelayMin and DelayMax bound the randomized sleep between attempts.
	// Defaults 1s and 2s.
	DelayMin time.Duration
	DelayMax time.Duration

	sleep  func(time.Duration)
	jitter func(min, max time.Duration) time.Duration
}

// NewChallengeResolver creates a resolver with the default retry budget.
func NewChallengeResolver(page interfaces.BrowserPage, probe *Probe, selectors Selectors, log *slog.Logger) *ChallengeResolver {
	return &ChallengeResolver{
		page:       page,
		probe:      probe,
		selectors:  selectors,
		log:        log,
		MaxRetries: 2,
		DelayMin:   1 * time.Second,
		DelayMax:   2 * time.Second,
		sleep:      time.Sleep,
		jitter:     randomDuration,
	}
}

// Resolve attempts to clear the challenge. Each attempt looks for the
// widget anchor; if present it is clicked after a humanized pause, and
// any terminal marker afterwards counts as success. The anchor being
// absent is not success by itself: the challenge may never have
// appeared, so the markers are checked regardless. Interaction errors
// fail the attempt, not the resolver. Returns false once the budget is
// exhausted.
func (r *ChallengeResolver) Resolve(ctx context.Context) bool {
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		r.log.Debug("Checking for challenge widget", slog.Int("attempt", attempt))

		el, err := r.page.Find(ctx, r.selectors.Challenge, challengeProbeTimeout)
		if err == nil {
			r.log.Info("Challenge widget present, attempting to clear it",
				slog.Int("attempt", attempt))
			r.sleep(r.jitter(preClickDelayMin, preClickDelayMax))

			if err := el.Click(ctx); err != nil {
				r.log.Debug("Challenge click failed", "err", err)
			} else {
				r.sleep(postClickDelay)
				if sig := r.probe.Detect(ctx, terminalSignals...); sig != interfaces.SignalNone {
					r.log.Info("Challenge cleared", slog.String("signal", sig.String()))
					return true
				}
			}
		}

		// The challenge may have auto-resolved or never appeared.
		if sig := r.probe.Detect(ctx, terminalSignals...); sig != interfaces.SignalNone {
			r.log.Debug("No challenge blocking the flow", slog.String("signal", sig.String()))
			return true
		}

		if attempt < r.MaxRetries {
			r.sleep(r.jitter(r.DelayMin, r.DelayMax))
		}
	}

	r.log.Error("Challenge not cleared", slog.Int("maxRetries", r.MaxRetries))
	return false
}
