// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendOverrideNotice(toEmail, featureName string, enabled bool, expiresAt *time.Time) error
	SendAccessChanged(toEmail, role, tier string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	frontendURL string
}

// NewEmailService returns a no-op sender when host is empty.
func NewEmailService(host string, port int, username, password, senderName, frontendURL string) IEmailService {
	if host == "" {
		return NopEmailService{}
	}
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		frontendURL: frontendURL,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) SendOverrideNotice(toEmail, featureName string, enabled bool, expiresAt *time.Time) error {
	subject, body := OverrideNotice(featureName, enabled, expiresAt, s.frontendURL)
	if err := s.dialer.DialAndSend(s.newMessage(toEmail, subject, body)); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send override notice to %s: %v\n", toEmail, err)
		return err
	}
	fmt.Printf("[MAILER] Override notice sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendAccessChanged(toEmail, role, tier string) error {
	if tier == "" {
		tier = "none"
	}
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your account access changed</h2>
			<p>Role: <strong>%s</strong></p>
			<p>Plan: <strong>%s</strong></p>
			<p><a href="%s">Open your workspace</a></p>
		</div>
	`, html.EscapeString(role), html.EscapeString(tier), s.frontendURL)

	if err := s.dialer.DialAndSend(s.newMessage(toEmail, "Your account access changed", body)); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send access change to %s: %v\n", toEmail, err)
		return err
	}
	return nil
}

// OverrideNotice renders the subject and HTML body of an override mail.
func OverrideNotice(featureName string, enabled bool, expiresAt *time.Time, frontendURL string) (string, string) {
	name := html.EscapeString(featureName)
	subject := fmt.Sprintf("%s has been enabled for your account", featureName)
	verb := "now have access to"
	if !enabled {
		subject = fmt.Sprintf("%s has been disabled for your account", featureName)
		verb = "no longer have access to"
	}

	until := ""
	if expiresAt != nil {
		until = fmt.Sprintf("<p>This change applies until %s.</p>", expiresAt.UTC().Format("January 2, 2006 15:04 MST"))
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Feature access update</h2>
			<p>You %s <strong>%s</strong>.</p>
			%s
			<p><a href="%s">Open your workspace</a></p>
		</div>
	`, verb, name, until, frontendURL)
	return subject, body
}

// NopEmailService drops every mail.
type NopEmailService struct{}

func (NopEmailService) SendOverrideNotice(string, string, bool, *time.Time) error { return nil }
func (NopEmailService) SendAccessChanged(string, string, string) error            { return nil }
