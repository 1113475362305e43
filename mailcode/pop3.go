package mailcode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/knadh/go-pop3"

	"github.com/reseat-project/reseat/interfaces"
)

// DialStateless opens an authenticated POP3-over-TLS connection.
func DialStateless(ctx context.Context, cfg interfaces.MailboxConfig) (interfaces.StatelessMailbox, error) {
	p := pop3.New(pop3.Opt{
		Host:       cfg.Server,
		Port:       cfg.Port,
		TLSEnabled: true,
	})
	conn, err := p.NewConn()
	if err != nil {
		return nil, fmt.Errorf("could not connect to POP3 server: %w", err)
	}
	if err := conn.Auth(cfg.User, cfg.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("POP3 login failed: %w", err)
	}
	return &popConn{conn: conn}, nil
}

type popConn struct {
	conn *pop3.Conn
}

func (p *popConn) Count(ctx context.Context) (int, error) {
	count, _, err := p.conn.Stat()
	if err != nil {
		return 0, fmt.Errorf("POP3 STAT failed: %w", err)
	}
	return count, nil
}

func (p *popConn) Retrieve(ctx context.Context, index int) ([]byte, error) {
	entity, err := p.conn.Retr(index)
	if err != nil {
		return nil, fmt.Errorf("POP3 RETR %d failed: %w", index, err)
	}

	var buf bytes.Buffer
	if err := entity.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("could not serialize message %d: %w", index, err)
	}
	return buf.Bytes(), nil
}

func (p *popConn) Quit() error {
	return p.conn.Quit()
}
