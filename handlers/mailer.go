package handlers

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers account emails. Constructed once at startup and injected
// into the auth handler.
type Mailer interface {
	SendActivationEmail(toEmail, toName, token string) error
	SendPasswordResetEmail(toEmail, toName, token string) error
}

// SendGridMailer sends transactional email through SendGrid.
type SendGridMailer struct {
	client      *sendgrid.Client
	fromEmail   string
	fromName    string
	frontendURL string
}

// NewSendGridMailer builds the mailer from environment configuration.
// Required: SENDGRID_API_KEY, EMAIL_FROM, FRONTEND_URL.
func NewSendGridMailer() (*SendGridMailer, error) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("EMAIL_FROM")
	frontendURL := os.Getenv("FRONTEND_URL")

	if apiKey == "" || fromEmail == "" || frontendURL == "" {
		return nil, fmt.Errorf("mailer configuration incomplete: SENDGRID_API_KEY, EMAIL_FROM and FRONTEND_URL are required")
	}

	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "CloudDrive"
	}

	return &SendGridMailer{
		client:      sendgrid.NewSendClient(apiKey),
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
	}, nil
}

func (m *SendGridMailer) send(toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, " ", htmlBody)

	resp, err := m.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *SendGridMailer) SendActivationEmail(toEmail, toName, token string) error {
	activationURL := fmt.Sprintf("%s/activate/%s", m.frontendURL, token)

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h1 style="color: #3b82f6;">Welcome to CloudDrive!</h1>
			<p>Thank you for registering. Please click the button below to activate your account:</p>
			<a href="%s" style="display: inline-block; padding: 12px 24px; background: linear-gradient(135deg, #3b82f6, #8b5cf6); color: white; text-decoration: none; border-radius: 8px; margin: 16px 0;">
				Activate Account
			</a>
			<p style="color: #666;">If you didn't create an account, please ignore this email.</p>
			<p style="color: #666;">This link will expire in 24 hours.</p>
		</div>
	`, activationURL)

	return m.send(toEmail, toName, "Activate Your CloudDrive Account", html)
}

func (m *SendGridMailer) SendPasswordResetEmail(toEmail, toName, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h1 style="color: #3b82f6;">Password Reset Request</h1>
			<p>You requested to reset your password. Click the button below to create a new password:</p>
			<a href="%s" style="display: inline-block; padding: 12px 24px; background: linear-gradient(135deg, #3b82f6, #8b5cf6); color: white; text-decoration: none; border-radius: 8px; margin: 16px 0;">
				Reset Password
			</a>
			<p style="color: #666;">If you didn't request this, please ignore this email.</p>
			<p style="color: #666;">This link will expire in 1 hour.</p>
		</div>
	`, resetURL)

	return m.send(toEmail, toName, "Reset Your CloudDrive Password", html)
}
