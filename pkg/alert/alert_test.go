package alert

import (
	"bytes"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph/pkg/config"
)

func TestNewSelectsAlerter(t *testing.T) {
	assert.IsType(t, &LogAlerter{}, New(config.AlertConfig{}, nil))
	assert.IsType(t, &LogAlerter{}, New(config.AlertConfig{Enabled: true}, nil), "no smtp host")

	cfg := config.AlertConfig{Enabled: true, SMTPHost: "mail.local", SMTPPort: 25, To: []string{"ops@example.org"}}
	assert.IsType(t, &EmailAlerter{}, New(cfg, nil))
}

func TestEmailAlerter(t *testing.T) {
	cfg := config.AlertConfig{
		Enabled:  true,
		SMTPHost: "mail.local",
		SMTPPort: 2525,
		From:     "scenegraph@example.org",
		To:       []string{"ops@example.org", "oncall@example.org"},
	}
	a := NewEmailAlerter(cfg)

	var gotAddr string
	var gotMsg []byte
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, cfg.From, from)
		assert.Equal(t, cfg.To, to)
		return nil
	}

	require.NoError(t, a.Alert("breaker open", "store unreachable"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: breaker open\r\n")
	assert.Contains(t, string(gotMsg), "To: ops@example.org,oncall@example.org\r\n")

	a.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, a.Alert("s", "m"), "refused")

	a.cfg.Enabled = false
	assert.NoError(t, a.Alert("s", "m"), "disabled alerter sends nothing")
}

func TestLogAlerter(t *testing.T) {
	var buf bytes.Buffer
	a := NewLogAlerter(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, a.Alert("breaker open", "store unreachable"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `alert="store unreachable"`)
}
