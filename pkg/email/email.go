package email

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers transactional email. Delivery mechanics are a deployment
// concern; in development the console sender just logs the message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// VerificationEmailData carries template data for the verification email
type VerificationEmailData struct {
	Name      string
	VerifyURL string
}

// Service sends application emails through a Sender
type Service struct {
	sender Sender
	from   string
}

// NewService creates an email service
func NewService(sender Sender, from string) *Service {
	return &Service{sender: sender, from: from}
}

// SendVerificationEmail sends the email-verification message to a new user
func (s *Service) SendVerificationEmail(ctx context.Context, to string, data *VerificationEmailData) error {
	body := "Hi " + data.Name + ",\n\n" +
		"Welcome to TutorConnect! Please verify your email address:\n\n" +
		data.VerifyURL + "\n"
	return s.sender.Send(ctx, to, "Verify your TutorConnect account", body)
}

// ConsoleSender logs messages instead of delivering them
type ConsoleSender struct {
	Log *zap.Logger
}

// Send implements Sender
func (s ConsoleSender) Send(_ context.Context, to, subject, body string) error {
	s.Log.Info("email (console sender)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
