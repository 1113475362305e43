// Package main (cmd/provision) runs one provisioning cycle from the
// command line: generate an identity, sign up against the remote
// service, retrieve the verification code from the configured mailbox,
// extract the session token, and rewrite the local device identity.
//
// The credentials are logged on success, or printed as JSON with
// --json-output for scripting.
package main
