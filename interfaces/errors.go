package interfaces

import (
	"errors"
	"fmt"
)

// Standard errors returned by pipeline components. Each one marks the
// exhaustion of that component's internal retry budget and is terminal
// for the provisioning run.
var (
	// ErrElementNotFound is returned by BrowserPage.Find when the element
	// did not become visible within the timeout.
	ErrElementNotFound = errors.New("element not found")

	// ErrEmailUnavailable means the remote service reported the email
	// address as already in use. Not transient; never retried.
	ErrEmailUnavailable = errors.New("email address not available")

	// ErrChallengeExhausted means the bot-challenge checkpoint could not
	// be cleared within the resolver's retry budget.
	ErrChallengeExhausted = errors.New("challenge verification exhausted retries")

	// ErrVerificationTimeout means no verification code was obtained
	// within the poller's outer retry budget.
	ErrVerificationTimeout = errors.New("verification code not received in time")

	// ErrTokenNotFound means the session token cookie never appeared
	// within the extractor's retry budget.
	ErrTokenNotFound = errors.New("session token cookie not found")

	// ErrIdentityDocMissing means the identity document does not exist at
	// the configured path.
	ErrIdentityDocMissing = errors.New("identity document does not exist")

	// ErrIdentityDocPermission means the process lacks read or write
	// access to the identity document.
	ErrIdentityDocPermission = errors.New("identity document is not readable and writable")
)

// PipelineError wraps a component error with the stage the run was in
// when it occurred.
type PipelineError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("provisioning failed at stage %s: %s", e.Stage, e.Err)
}

// Unwrap exposes the underlying component error to errors.Is/As.
func (e *PipelineError) Unwrap() error { return e.Err }

// WrapStage attaches a stage to err. Returns nil for a nil err; an error
// already carrying a stage is returned unchanged so the innermost stage
// wins.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, or StageFailed if err does
// not carry one.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return StageFailed
}
