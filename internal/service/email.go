package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	subject, body := welcomeEmailTemplate(name, s.appURL+"/app/profile", s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

func (s *EmailService) SendKYCSubmittedEmail(ctx context.Context, email, name string) error {
	subject, body := kycSubmittedEmailTemplate(name, s.appName)
	return s.send(ctx, "kyc_submitted", email, subject, body)
}

func (s *EmailService) SendKYCReviewedEmail(ctx context.Context, email, name string, doc *model.KYCDocument) error {
	note := ""
	if doc.ReviewNote != nil {
		note = *doc.ReviewNote
	}
	subject, body := kycReviewedEmailTemplate(name, doc.DocumentType, doc.Status, note, s.appURL+"/app/kyc", s.appName)
	return s.send(ctx, "kyc_reviewed", email, subject, body)
}

func (s *EmailService) SendAccountDeletedEmail(ctx context.Context, email, name string) error {
	subject, body := accountDeletedEmailTemplate(name, s.appName)
	return s.send(ctx, "account_deleted", email, subject, body)
}

// send delivers through Resend, or only logs the message in development.
func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
