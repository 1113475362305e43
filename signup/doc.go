// Package signup drives a remote browser session through the service's
// multi-step signup flow and extracts the resulting session token.
//
// The Orchestrator owns one provisioning attempt end to end: it submits
// the generated identity, clears bot-challenge checkpoints through the
// ChallengeResolver, obtains the emailed verification code through a
// CodeSource, types it into the per-digit entry boxes, and finally pulls
// the session token out of the cookie jar with the CredentialExtractor.
//
// All page interaction goes through the interfaces.BrowserPage
// capability. Instead of probing for ad hoc elements, the flow queries an
// enumerable set of page signals (see Probe) once per loop iteration,
// which gives the state machine an explicit transition table.
//
// Stages execute strictly sequentially within one run; the resolver and
// the code source are never invoked concurrently for the same session.
// Human-like pacing (randomized inter-field and inter-keystroke delays)
// is deliberate: the remote service watches for automation.
package signup
