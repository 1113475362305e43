// Package interfaces defines the core interfaces and types for the account
// provisioning and device-identity reset pipeline. It provides the contract
// between components without implementation details.
//
// The pipeline coordinates three externally-owned systems:
//
//  1. A browser session driving the remote service's signup flow,
//     abstracted as BrowserPage.
//  2. A mailbox holding the emailed verification code, abstracted as
//     StatefulMailbox (IMAP-like) and StatelessMailbox (POP3-like).
//  3. A locally persisted identity document the client application uses
//     to distinguish installations, handled by the idstore package.
//
// # Page Signals
//
// Rather than probing the page for ad hoc elements, the signup state
// machine queries an enumerable set of page signals once per loop
// iteration. Each PageSignal corresponds to a page state the remote
// service can present during signup:
//
//   - SignalPersonalInfoForm: the name/email form is visible
//   - SignalPasswordForm: the password form is visible
//   - SignalChallengeWidget: a bot-challenge checkpoint is interposed
//   - SignalCodeEntry: the six-box verification code entry is visible
//   - SignalSettingsReached: the account settings page rendered (success)
//   - SignalEmailTaken: the service rejected the email as already in use
//
// # Error Types
//
// Terminal pipeline errors, one per component budget:
//
//   - ErrEmailUnavailable: the service reported the email already in use
//   - ErrChallengeExhausted: the challenge retry budget was exhausted
//   - ErrVerificationTimeout: the mail poller's outer budget was exhausted
//   - ErrTokenNotFound: the session cookie never appeared
//   - ErrIdentityDocMissing, ErrIdentityDocPermission: identity store
//     preconditions failed
//
// Every error leaving the orchestrator is wrapped in a *PipelineError
// carrying the Stage at which it occurred, for operator diagnosis.
// Exhaustion of any component budget is terminal for the run; callers
// must not retry the returned errors.
package interfaces
