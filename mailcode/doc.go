// Package mailcode retrieves the six-digit verification code the remote
// service emails during signup.
//
// The poller runs two nested, independent retry budgets:
//
//   - The outer budget (default 5 cycles, 60s apart) governs full
//     reconnect-and-retry cycles. Connection-level errors are treated as
//     transient: they end the current cycle and the poller moves on to
//     the next one.
//   - The inner budget (default 20 attempts, 3s apart) governs re-search
//     attempts within one cycle. Both budgets are explicit bounded loops.
//
// # Retrieval Strategies
//
// The IMAP strategy searches by exact recipient header. A small set of
// consumer providers cannot reliably filter by recipient; for mailbox
// users on that allowlist the strategy performs the provider's
// identification handshake and falls back to searching for messages
// received today and unread, re-verifying each candidate's To header
// against the target address. A message that yields a code is flagged
// deleted and expunged: code extraction consumes the message.
//
// The POP3 strategy lists the mailbox and inspects only the ten most
// recent messages, newest first, keeping those from the expected
// notification sender. Connections are jittered to avoid hammering the
// server. This strategy is read-only; nothing is deleted.
//
// A returned code is always exactly six ASCII digits matched as a whole
// token, never a slice of a longer run.
//
// When several provisioning attempts share one mailbox, the date-search
// fallback can attribute a code to the wrong attempt; callers must not
// run concurrent polls against the same mailbox.
package mailcode
