// Package pipeline wires the provisioning components together: identity
// generation, the browser-driven signup flow, mailbox polling for the
// verification code, and the local device-identity reset.
//
// A Runner is safe to reuse across runs but runs must not overlap: the
// mailbox poller deletes matched messages, and concurrent polls against
// the same mailbox would misattribute codes.
package pipeline
