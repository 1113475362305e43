package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
mailbox:
  server: imap.example.com
  port: 993
  user: inbox@example.com
  password: hunter2
domains:
  - example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProtocolPOP3, cfg.Mailbox.Protocol)
	assert.Equal(t, DefaultFolder, cfg.Mailbox.Folder)
	assert.Equal(t, DefaultNotifySender, cfg.Mailbox.NotifySender)
	assert.Equal(t, DefaultSignupURL, cfg.Service.SignupURL)
}

func TestLoadNormalizesProtocolCase(t *testing.T) {
	path := writeConfig(t, `
mailbox:
  server: imap.example.com
  port: 993
  user: inbox@example.com
  password: hunter2
  protocol: imap
domains:
  - example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProtocolIMAP, cfg.Mailbox.Protocol)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing server",
			content: `
mailbox:
  port: 993
  user: inbox@example.com
  password: hunter2
domains: [example.com]
`,
		},
		{
			name: "missing password",
			content: `
mailbox:
  server: imap.example.com
  port: 993
  user: inbox@example.com
domains: [example.com]
`,
		},
		{
			name: "no domains",
			content: `
mailbox:
  server: imap.example.com
  port: 993
  user: inbox@example.com
  password: hunter2
`,
		},
		{
			name: "unknown protocol",
			content: `
mailbox:
  server: imap.example.com
  port: 993
  user: inbox@example.com
  password: hunter2
  protocol: SMTP
domains: [example.com]
`,
		},
		{
			name: "port out of range",
			content: `
mailbox:
  server: imap.example.com
  port: 993993
  user: inbox@example.com
  password: hunter2
domains: [example.com]
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}
