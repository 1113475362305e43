package mailcode

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	imapid "github.com/emersion/go-imap-id"

	"github.com/reseat-project/reseat/interfaces"
)

// DialStateful opens an authenticated IMAP-over-TLS session.
func DialStateful(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatefulMailbox, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.Server, cfg.Port), nil)
	if err != nil {
		return nil, fmt.Errorf("could not connect to IMAP server: %w", err)
	}
	if err := c.Login(cfg.User, cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return &imapSession{c: c, user: cfg.User}, nil
}

type imapSession struct {
	c    *client.Client
	user string
}

// Identify performs the ID handshake some consumer providers require
// before they accept searches.
func (s *imapSession) Identify(ctx context.Context) error {
	local := s.user
	if at := strings.Index(local, "@"); at > 0 {
		local = local[:at]
	}
	idClient := imapid.NewClient(s.c)
	_, err := idClient.ID(imapid.ID{
		imapid.FieldName: local,
		"contact":        s.user,
		"version":        "1.0.0",
		"vendor":         "reseat",
	})
	if err != nil {
		return fmt.Errorf("IMAP ID command failed: %w", err)
	}
	return nil
}

func (s *imapSession) SelectFolder(ctx context.Context, name string) error {
	if _, err := s.c.Select(name, false); err != nil {
		return fmt.Errorf("could not select %q: %w", name, err)
	}
	return nil
}

func (s *imapSession) Search(ctx context.Context, crit interfaces.MailSearch) ([]uint32, error) {
	sc := imap.NewSearchCriteria()
	if crit.UnseenToday {
		now := time.Now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		sc.Since = day
		sc.Before = day.AddDate(0, 0, 1)
		sc.WithoutFlags = []string{imap.SeenFlag}
	} else {
		sc.Header.Add("To", crit.Recipient)
	}
	return s.c.Search(sc)
}

func (s *imapSession) Fetch(ctx context.Context, id uint32) ([]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(id)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 1)
	if err := s.c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages); err != nil {
		return nil, err
	}

	msg := <-messages
	if msg == nil {
		return nil, fmt.Errorf("server returned no message for id %d", id)
	}
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body section", id)
	}
	return io.ReadAll(body)
}

func (s *imapSession) MarkDeleted(ctx context.Context, id uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(id)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return s.c.Store(seqset, item, []interface{}{imap.DeletedFlag}, nil)
}

func (s *imapSession) Expunge(ctx context.Context) error {
	return s.c.Expunge(nil)
}

func (s *imapSession) Logout() error {
	return s.c.Logout()
}
