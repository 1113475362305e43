package mailcode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reseat-project/reseat/interfaces"
)

// MockStatefulMailbox implements interfaces.StatefulMailbox for testing.
type MockStatefulMailbox struct {
	mock.Mock
}

func (m *MockStatefulMailbox) Identify(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStatefulMailbox) SelectFolder(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockStatefulMailbox) Search(ctx context.Context, crit interfaces.MailSearch) ([]uint32, error) {
	args := m.Called(ctx, crit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint32), args.Error(1)
}

func (m *MockStatefulMailbox) Fetch(ctx context.Context, id uint32) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStatefulMailbox) MarkDeleted(ctx context.Context, id uint32) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStatefulMailbox) Expunge(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStatefulMailbox) Logout() error {
	return m.Called().Error(0)
}

// MockStatelessMailbox implements interfaces.StatelessMailbox for testing.
type MockStatelessMailbox struct {
	mock.Mock
}

func (m *MockStatelessMailbox) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatelessMailbox) Retrieve(ctx context.Context, index int) ([]byte, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStatelessMailbox) Quit() error {
	return m.Called().Error(0)
}

// sleepRecorder replaces time.Sleep so budget timing is observable.
type sleepRecorder struct {
	total time.Duration
	calls []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.total += d
	r.calls = append(r.calls, d)
}

func testPoller(opts Options) (*Poller, *sleepRecorder) {
	opts.applyDefaults()
	rec := &sleepRecorder{}
	return &Poller{
		opts:   opts,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:  rec.sleep,
		jitter: func(min, max time.Duration) time.Duration { return min },
	}, rec
}

const targetAddress = "foo123@example.com"

func imapOptions(user string) Options {
	return Options{
		Protocol:     ProtocolIMAP,
		NotifySender: "no-reply@cursor.sh",
		Mailbox: interfaces.MailboxConfig{
			Server:   "imap.example.com",
			Port:     993,
			User:     user,
			Password: "secret",
			Folder:   "INBOX",
		},
	}
}

func TestGetCodeIMAPFirstAttemptHitConsumesMessage(t *testing.T) {
	session := new(MockStatefulMailbox)
	session.On("SelectFolder", mock.Anything, "INBOX").Return(nil)
	session.On("Search", mock.Anything, interfaces.MailSearch{Recipient: targetAddress}).
		Return([]uint32{5}, nil)
	session.On("Fetch", mock.Anything, uint32(5)).
		Return(plainMessage("no-reply@cursor.sh", targetAddress, "Your code is 482913."), nil)
	session.On("MarkDeleted", mock.Anything, uint32(5)).Return(nil)
	session.On("Expunge", mock.Anything).Return(nil)
	session.On("Logout").Return(nil)

	poller, rec := testPoller(imapOptions("inbox@example.com"))
	poller.dialStateful = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatefulMailbox, error) {
		return session, nil
	}

	code, err := poller.GetCode(context.Background(), targetAddress)
	require.NoError(t, err)
	assert.Equal(t, "482913", code)

	// First outer cycle, first inner attempt: no sleeps at all.
	assert.Empty(t, rec.calls)

	session.AssertCalled(t, "MarkDeleted", mock.Anything, uint32(5))
	session.AssertCalled(t, "Expunge", mock.Anything)
	session.AssertCalled(t, "Logout")
	session.AssertNotCalled(t, "Identify", mock.Anything)
}

func TestGetCodeIMAPDateModeSkipsWrongRecipient(t *testing.T) {
	// Date-search allowlist user: the coarse "unread today" search
	// matches, but the message is addressed to someone else and must be
	// skipped even though it is the only candidate.
	session := new(MockStatefulMailbox)
	session.On("Identify", mock.Anything).Return(nil)
	session.On("SelectFolder", mock.Anything, "INBOX").Return(nil)
	session.On("Search", mock.Anything, interfaces.MailSearch{UnseenToday: true}).
		Return([]uint32{7}, nil)
	session.On("Fetch", mock.Anything, uint32(7)).
		Return(plainMessage("no-reply@cursor.sh", "other@example.com", "Your code is 482913."), nil)
	session.On("Logout").Return(nil)

	opts := imapOptions("poller@163.com")
	opts.OuterMax = 2
	opts.OuterInterval = time.Second
	poller, _ := testPoller(opts)
	poller.dialStateful = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatefulMailbox, error) {
		return session, nil
	}

	_, err := poller.GetCode(context.Background(), targetAddress)
	assert.ErrorIs(t, err, interfaces.ErrVerificationTimeout)

	session.AssertCalled(t, "Identify", mock.Anything)
	session.AssertNotCalled(t, "MarkDeleted", mock.Anything, mock.Anything)
}

func TestGetCodeIMAPEmptyMailboxExhaustsBudgets(t *testing.T) {
	session := new(MockStatefulMailbox)
	session.On("SelectFolder", mock.Anything, "INBOX").Return(nil)
	session.On("Search", mock.Anything, mock.Anything).Return([]uint32{}, nil)
	session.On("Logout").Return(nil)

	opts := imapOptions("inbox@example.com")
	opts.OuterMax = 3
	opts.OuterInterval = 10 * time.Second
	opts.InnerMax = 4
	opts.InnerDelay = time.Second
	poller, rec := testPoller(opts)
	poller.dialStateful = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatefulMailbox, error) {
		return session, nil
	}

	_, err := poller.GetCode(context.Background(), targetAddress)
	assert.ErrorIs(t, err, interfaces.ErrVerificationTimeout)

	// Every cycle burns the full inner budget; outer interval sleeps
	// separate the cycles. 3 cycles x 3 inner delays + 2 outer intervals.
	wantTotal := 3*3*time.Second + 2*10*time.Second
	assert.Equal(t, wantTotal, rec.total)
}

func TestGetCodeIMAPConnectionErrorIsTransient(t *testing.T) {
	session := new(MockStatefulMailbox)
	session.On("SelectFolder", mock.Anything, "INBOX").Return(nil)
	session.On("Search", mock.Anything, mock.Anything).Return([]uint32{3}, nil)
	session.On("Fetch", mock.Anything, uint32(3)).
		Return(plainMessage("no-reply@cursor.sh", targetAddress, "Your code is 482913."), nil)
	session.On("MarkDeleted", mock.Anything, uint32(3)).Return(nil)
	session.On("Expunge", mock.Anything).Return(nil)
	session.On("Logout").Return(nil)

	opts := imapOptions("inbox@example.com")
	opts.OuterMax = 2
	opts.OuterInterval = time.Second
	poller, _ := testPoller(opts)

	dials := 0
	poller.dialStateful = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatefulMailbox, error) {
		dials++
		if dials == 1 {
			return nil, errors.New("connection refused")
		}
		return session, nil
	}

	code, err := poller.GetCode(context.Background(), targetAddress)
	require.NoError(t, err)
	assert.Equal(t, "482913", code)
	assert.Equal(t, 2, dials, "a failed dial ends the cycle, the next cycle redials")
}

func TestGetCodePOP3FiltersOnSenderAndScansNewestFirst(t *testing.T) {
	conn := new(MockStatelessMailbox)
	conn.On("Count", mock.Anything).Return(12, nil)
	// Newest message is from someone else; the one below it carries the
	// code from the expected sender.
	conn.On("Retrieve", mock.Anything, 12).
		Return(plainMessage("newsletter@example.com", targetAddress, "big sale 123456 today"), nil)
	conn.On("Retrieve", mock.Anything, 11).
		Return(plainMessage("no-reply@cursor.sh", targetAddress, "Your code is 482913."), nil)
	conn.On("Quit").Return(nil)

	opts := imapOptions("inbox@example.com")
	opts.Protocol = ProtocolPOP3
	poller, _ := testPoller(opts)
	poller.dialStateless = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatelessMailbox, error) {
		return conn, nil
	}

	code, err := poller.GetCode(context.Background(), targetAddress)
	require.NoError(t, err)
	assert.Equal(t, "482913", code)

	// Index 10 and below were never needed.
	conn.AssertNotCalled(t, "Retrieve", mock.Anything, 10)
	conn.AssertCalled(t, "Quit")
}

func TestGetCodePOP3InspectsOnlyTenMostRecent(t *testing.T) {
	conn := new(MockStatelessMailbox)
	conn.On("Count", mock.Anything).Return(25, nil)
	for i := 25; i >= 16; i-- {
		conn.On("Retrieve", mock.Anything, i).
			Return(plainMessage("someone@example.com", targetAddress, "nothing here"), nil)
	}
	conn.On("Quit").Return(nil)

	opts := imapOptions("inbox@example.com")
	opts.Protocol = ProtocolPOP3
	opts.OuterMax = 1
	opts.InnerMax = 1
	poller, _ := testPoller(opts)
	poller.dialStateless = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatelessMailbox, error) {
		return conn, nil
	}

	_, err := poller.GetCode(context.Background(), targetAddress)
	assert.ErrorIs(t, err, interfaces.ErrVerificationTimeout)

	conn.AssertNotCalled(t, "Retrieve", mock.Anything, 15)
	conn.AssertExpectations(t)
}

func TestGetCodePOP3JittersAroundConnections(t *testing.T) {
	opts := imapOptions("inbox@example.com")
	opts.Protocol = ProtocolPOP3
	opts.OuterMax = 1
	opts.InnerMax = 2
	poller, rec := testPoller(opts)
	poller.dialStateless = func(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatelessMailbox, error) {
		return nil, errors.New("connection refused")
	}

	_, err := poller.GetCode(context.Background(), targetAddress)
	assert.ErrorIs(t, err, interfaces.ErrVerificationTimeout)

	// One pre-connect jitter, then the post-error jitter; the dial error
	// ends the cycle before a second attempt.
	require.Len(t, rec.calls, 2)
	assert.Equal(t, connectJitterMin, rec.calls[0])
	assert.Equal(t, errorJitterMin, rec.calls[1])
}
