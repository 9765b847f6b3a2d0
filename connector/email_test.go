package connector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureSender records sent messages instead of delivering them.
type captureSender struct {
	from string
	last EmailInput
	err  error
}

func (c *captureSender) Send(_ context.Context, from string, input EmailInput) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.from = from
	c.last = input
	return "msg_test", nil
}

func smtpConfig() Config {
	return Config{
		"provider":     "smtp",
		"fromEmail":    "noreply@example.com",
		"smtpHost":     "mail.example.com",
		"smtpPort":     587.0,
		"smtpUser":     "mailer",
		"smtpPassword": "secret",
	}
}

func TestEmailConnector_Execute(t *testing.T) {
	sender := &captureSender{}
	c := NewEmailConnector(sender, zap.NewNop())

	res, err := c.Execute(context.Background(), smtpConfig(), map[string]any{
		"to":      []any{"a@example.com", "b@example.com"},
		"subject": "hello",
		"body":    "world",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "msg_test", data["messageId"])
	assert.Equal(t, "sent", data["status"])
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, data["recipients"])

	assert.Equal(t, "noreply@example.com", sender.from)
	assert.Equal(t, "hello", sender.last.Subject)
}

func TestEmailConnector_SingleRecipientString(t *testing.T) {
	sender := &captureSender{}
	c := NewEmailConnector(sender, zap.NewNop())

	res, err := c.Execute(context.Background(), smtpConfig(), map[string]any{
		"to":      "solo@example.com",
		"subject": "hi",
		"body":    "text",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"solo@example.com"}, sender.last.To)
}

func TestEmailConnector_NoRecipients(t *testing.T) {
	c := NewEmailConnector(&captureSender{}, zap.NewNop())
	_, err := c.Execute(context.Background(), smtpConfig(), map[string]any{"subject": "x"})
	assert.Error(t, err)
}

func TestEmailConnector_SendFailureIsFailedResult(t *testing.T) {
	c := NewEmailConnector(&captureSender{err: fmt.Errorf("relay refused")}, zap.NewNop())
	res, err := c.Execute(context.Background(), smtpConfig(), map[string]any{
		"to": "a@example.com", "subject": "x", "body": "y",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "relay refused")
}

func TestEmailConnector_Validate(t *testing.T) {
	c := NewEmailConnector(nil, zap.NewNop())

	assert.True(t, c.Validate(smtpConfig()))

	incomplete := smtpConfig()
	delete(incomplete, "smtpPassword")
	assert.False(t, c.Validate(incomplete))

	assert.True(t, c.Validate(Config{
		"provider": "sendgrid", "fromEmail": "n@e.com", "apiKey": "sg-key",
	}))
	assert.False(t, c.Validate(Config{
		"provider": "sendgrid", "fromEmail": "n@e.com",
	}))
	assert.False(t, c.Validate(Config{"provider": "carrier-pigeon", "fromEmail": "n@e.com"}))
}

func TestEmailConnector_SimulatedSender(t *testing.T) {
	c := NewEmailConnector(nil, zap.NewNop())
	res, err := c.Execute(context.Background(), smtpConfig(), EmailInput{
		To: []string{"a@example.com"}, Subject: "s", Body: "b",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	data := res.Data.(map[string]any)
	id, _ := data["messageId"].(string)
	assert.True(t, strings.HasPrefix(id, "msg_"))
}

func TestEmailConnector_Test(t *testing.T) {
	sender := &captureSender{}
	c := NewEmailConnector(sender, zap.NewNop())

	ok, err := c.Test(context.Background(), smtpConfig())
	require.NoError(t, err)
	assert.True(t, ok)
	// The probe goes to the configured from address.
	assert.Equal(t, []string{"noreply@example.com"}, sender.last.To)

	_, err = c.Test(context.Background(), Config{"provider": "smtp"})
	assert.Error(t, err)
}
