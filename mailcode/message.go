package mailcode

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// codePattern matches a six-digit code as a whole token. The word
// boundaries reject runs embedded in longer numeric or alphanumeric
// tokens.
var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// ExtractCode returns the first isolated six-digit code in body, or the
// empty string if there is none.
func ExtractCode(body string) string {
	return codePattern.FindString(body)
}

// ParsedMail is a read-only view over one fetched message.
type ParsedMail struct {
	From string
	To   string
	Body string
}

// AddressedTo reports whether the message's To header names addr.
func (m *ParsedMail) AddressedTo(addr string) bool {
	return strings.EqualFold(strings.TrimSpace(m.To), strings.TrimSpace(addr))
}

// parseMessage extracts the sender, recipient, and plaintext body from a
// raw RFC 822 message. Multipart messages are walked for the first
// inline text/plain part; attachments are skipped. Part bodies are
// decoded with their declared charset; an unknown charset falls back to
// the raw bytes rather than failing the message.
func parseMessage(raw []byte) (*ParsedMail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("could not parse message: %w", err)
	}
	if mr == nil {
		return nil, fmt.Errorf("could not parse message: %w", err)
	}

	parsed := &ParsedMail{}
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		parsed.From = addrs[0].Address
	}
	if addrs, err := mr.Header.AddressList("To"); err == nil && len(addrs) > 0 {
		parsed.To = addrs[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			break
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			if contentType == "text/plain" && parsed.Body == "" {
				body, err := io.ReadAll(part.Body)
				if err == nil {
					parsed.Body = string(body)
				}
			}
		case *mail.AttachmentHeader:
			// Attachments never carry the code.
		}
	}
	return parsed, nil
}
