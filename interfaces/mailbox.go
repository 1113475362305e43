package interfaces

import "context"

// MailboxConfig carries the connection parameters for the verification
// mailbox. The same account is used for both retrieval protocols.
type MailboxConfig struct {
	Server   string
	Port     int
	User     string
	Password string
	Folder   string
}

// MailSearch describes one mailbox search. Exactly one of the two modes
// is used per search: an exact recipient-header match, or "messages
// received today, unread" for providers that cannot reliably filter by
// recipient header.
type MailSearch struct {
	Recipient   string
	UnseenToday bool
}

// StatefulMailbox is the IMAP-like retrieval capability. Message
// identifiers are only valid for the lifetime of one session. The session
// must be closed with Logout before the poll iteration that opened it
// returns.
type StatefulMailbox interface {
	// Identify performs the provider identification handshake some
	// consumer providers require after login.
	Identify(ctx context.Context) error

	// SelectFolder opens the named folder for searching.
	SelectFolder(ctx context.Context, name string) error

	// Search returns matching message identifiers in mailbox order
	// (oldest first).
	Search(ctx context.Context, crit MailSearch) ([]uint32, error)

	// Fetch returns the full raw message (RFC 822) for one identifier.
	Fetch(ctx context.Context, id uint32) ([]byte, error)

	// MarkDeleted flags the message for deletion.
	MarkDeleted(ctx context.Context, id uint32) error

	// Expunge permanently removes flagged messages.
	Expunge(ctx context.Context) error

	// Logout closes the session.
	Logout() error
}

// StatelessMailbox is the POP3-like retrieval capability. Retrieval
// through this interface is read-only; no deletion is performed.
type StatelessMailbox interface {
	// Count returns the number of messages in the mailbox.
	Count(ctx context.Context) (int, error)

	// Retrieve returns the full raw message at the given 1-based index,
	// where higher indexes are more recent.
	Retrieve(ctx context.Context, index int) ([]byte, error)

	// Quit closes the connection.
	Quit() error
}

// StatefulDialer opens an authenticated IMAP-like session.
type StatefulDialer func(ctx context.Context, cfg MailboxConfig) (StatefulMailbox, error)

// StatelessDialer opens an authenticated POP3-like connection.
type StatelessDialer func(ctx context.Context, cfg MailboxConfig) (StatelessMailbox, error)
