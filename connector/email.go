package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automateai/agentrun/types"
)

// EmailInput is the per-call payload for the email connector.
type EmailInput struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    string   `json:"html,omitempty"`
}

// EmailSender abstracts the delivery transport so execution works against an
// SMTP relay or an API-based provider, and tests can capture messages.
type EmailSender interface {
	Send(ctx context.Context, from string, input EmailInput) (messageID string, err error)
}

// EmailConnector sends email through a configured provider. The default
// sender only simulates delivery; production wiring injects a real transport.
type EmailConnector struct {
	sender EmailSender
	logger *zap.Logger
}

// NewEmailConnector creates the email connector. A nil sender simulates
// delivery, generating a message id without touching the network.
func NewEmailConnector(sender EmailSender, logger *zap.Logger) *EmailConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = simulatedSender{}
	}
	return &EmailConnector{sender: sender, logger: logger.With(zap.String("connector", "email"))}
}

func (c *EmailConnector) Name() string        { return "email" }
func (c *EmailConnector) Description() string { return "Send emails via SMTP or email service providers" }

func (c *EmailConnector) ConfigSchema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: types.SchemaTypeObject,
		Properties: map[string]*types.JSONSchema{
			"provider":     {Type: types.SchemaTypeString, Enum: []any{"smtp", "sendgrid", "resend"}},
			"apiKey":       {Type: types.SchemaTypeString},
			"smtpHost":     {Type: types.SchemaTypeString},
			"smtpPort":     {Type: types.SchemaTypeNumber},
			"smtpUser":     {Type: types.SchemaTypeString},
			"smtpPassword": {Type: types.SchemaTypeString},
			"fromEmail":    {Type: types.SchemaTypeString},
			"fromName":     {Type: types.SchemaTypeString},
		},
		Required: []string{"provider", "fromEmail"},
	}
}

// Validate checks the provider-specific required fields without any I/O.
func (c *EmailConnector) Validate(config Config) bool {
	provider, _ := config["provider"].(string)
	fromEmail, _ := config["fromEmail"].(string)
	if provider == "" || fromEmail == "" {
		return false
	}

	switch provider {
	case "smtp":
		host, _ := config["smtpHost"].(string)
		user, _ := config["smtpUser"].(string)
		pass, _ := config["smtpPassword"].(string)
		_, hasPort := config["smtpPort"]
		return host != "" && user != "" && pass != "" && hasPort
	case "sendgrid", "resend":
		key, _ := config["apiKey"].(string)
		return key != ""
	}
	return false
}

// Execute sends one message and returns the delivery receipt.
func (c *EmailConnector) Execute(ctx context.Context, config Config, input any) (*Result, error) {
	msg, err := parseEmailInput(input)
	if err != nil {
		return nil, err
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("email requires at least one recipient")
	}

	from, _ := config["fromEmail"].(string)
	provider, _ := config["provider"].(string)

	c.logger.Info("sending email",
		zap.String("provider", provider),
		zap.String("to", strings.Join(msg.To, ", ")),
		zap.String("subject", msg.Subject),
	)

	messageID, err := c.sender.Send(ctx, from, msg)
	if err != nil {
		return failureResult(fmt.Sprintf("email send failed: %v", err)), nil
	}

	return successResult(map[string]any{
		"messageId":  messageID,
		"status":     "sent",
		"recipients": msg.To,
		"provider":   provider,
	}, nil), nil
}

// Test sends a probe message to the configured from address.
func (c *EmailConnector) Test(ctx context.Context, config Config) (bool, error) {
	if !c.Validate(config) {
		return false, fmt.Errorf("incomplete email configuration")
	}
	from, _ := config["fromEmail"].(string)
	res, err := c.Execute(ctx, config, EmailInput{
		To:      []string{from},
		Subject: "Connector configuration test",
		Body:    "This is a test email verifying the email connector configuration.",
	})
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

func parseEmailInput(input any) (EmailInput, error) {
	switch v := input.(type) {
	case EmailInput:
		return v, nil
	case map[string]any:
		msg := EmailInput{}
		switch to := v["to"].(type) {
		case string:
			msg.To = []string{to}
		case []string:
			msg.To = to
		case []any:
			for _, r := range to {
				if s, ok := r.(string); ok {
					msg.To = append(msg.To, s)
				}
			}
		}
		msg.Subject, _ = v["subject"].(string)
		msg.Body, _ = v["body"].(string)
		msg.HTML, _ = v["html"].(string)
		return msg, nil
	default:
		return EmailInput{}, fmt.Errorf("unsupported email input type %T", input)
	}
}

type simulatedSender struct{}

func (simulatedSender) Send(ctx context.Context, from string, input EmailInput) (string, error) {
	return "msg_" + uuid.NewString(), nil
}
