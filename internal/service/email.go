package service

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"net/url"
	"time"

	"newsletter/internal/i18n"
	"newsletter/internal/models"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through the configured SMTP server, using implicit TLS
// on SMTPS ports and STARTTLS otherwise.
type SMTPMailer struct {
	config *models.SMTPConfig
}

func NewSMTPMailer(config *models.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	config := m.config
	if !config.Configured() {
		return fmt.Errorf("smtp is not configured")
	}
	if to == "" {
		return fmt.Errorf("no recipient email given")
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	tlsConfig := &tls.Config{ServerName: config.Host}

	var client *smtp.Client
	if config.Port == 465 || config.Port == 8465 || config.Port == 443 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect via SSL: %w", err)
		}
		client, err = smtp.NewClient(conn, config.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		var err error
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	defer client.Close()

	if config.Username != "" {
		auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := writer.Write(buildMessage(config, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return client.Quit()
}

// LogMailer logs messages instead of sending them. It stands in for SMTP
// during local development.
type LogMailer struct{}

func (LogMailer) Send(to, subject, htmlBody string) error {
	slog.Info("email not sent, smtp disabled", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}

func buildMessage(config *models.SMTPConfig, to, subject, body string) []byte {
	fromName := config.FromName
	if fromName == "" {
		fromName = "Newsletter"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", fromName, config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

const layoutTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 10px 20px; background-color: #0c5460; color: #fff; border-radius: 5px; text-decoration: none; }
		.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<h2>{{.Title}}</h2>
		{{range .Paragraphs}}<p>{{.}}</p>
		{{end}}{{if .HTML}}<div>{{.HTML}}</div>{{end}}
		{{if .ActionURL}}<p><a class="button" href="{{.ActionURL}}">{{.ActionLabel}}</a></p>{{end}}
		<div class="footer">
			<p>{{.FooterAuto}}</p>
			{{if .UnsubscribeURL}}<p><a href="{{.UnsubscribeURL}}">{{.UnsubscribeLabel}}</a></p>{{end}}
		</div>
	</div>
</body>
</html>
`

var layout = template.Must(template.New("layout").Parse(layoutTemplate))

type emailData struct {
	Lang             string
	Title            string
	Paragraphs       []string
	HTML             template.HTML
	ActionURL        string
	ActionLabel      string
	FooterAuto       string
	UnsubscribeURL   string
	UnsubscribeLabel string
}

// EmailService renders localized transactional mail and hands it to a Mailer.
type EmailService struct {
	mailer  Mailer
	i18n    *i18n.I18nService
	baseURL string
}

func NewEmailService(mailer Mailer, i18nService *i18n.I18nService, baseURL string) *EmailService {
	return &EmailService{
		mailer:  mailer,
		i18n:    i18nService,
		baseURL: baseURL,
	}
}

func (e *EmailService) render(tr *i18n.Translator, data emailData) (string, error) {
	data.Lang = tr.Lang()
	data.FooterAuto = tr.Tr("email_footer_auto")
	if data.UnsubscribeURL != "" {
		data.UnsubscribeLabel = tr.Tr("email_footer_unsubscribe")
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

func (e *EmailService) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", e.baseURL, path, url.QueryEscape(token))
}

func (e *EmailService) send(to, subject string, tr *i18n.Translator, data emailData) error {
	body, err := e.render(tr, data)
	if err != nil {
		return err
	}
	if err := e.mailer.Send(to, subject, body); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

// SendVerification asks a new subscriber to confirm their address.
func (e *EmailService) SendVerification(sub *models.Subscriber) error {
	tr := e.i18n.For(sub.Language)
	vars := map[string]interface{}{"Name": displayName(sub.Name, sub.Email)}

	return e.send(sub.Email, tr.Tr("email_verify_subject"), tr, emailData{
		Title:       tr.Tr("email_verify_title"),
		Paragraphs:  []string{tr.TrData("email_verify_body", vars)},
		ActionURL:   e.link("/api/subscribers/verify", sub.VerificationToken),
		ActionLabel: tr.Tr("email_verify_button"),
	})
}

// SendWelcome greets a subscriber after verification.
func (e *EmailService) SendWelcome(sub *models.Subscriber) error {
	tr := e.i18n.For(sub.Language)
	vars := map[string]interface{}{"Name": displayName(sub.Name, sub.Email)}
	subject := tr.Tr("email_welcome_subject")

	return e.send(sub.Email, subject, tr, emailData{
		Title:          subject,
		Paragraphs:     []string{tr.TrData("email_welcome_body", vars)},
		UnsubscribeURL: e.link("/api/subscribers/unsubscribe", sub.UnsubscribeToken),
	})
}

// SendNewsletter delivers one newsletter issue. body is trusted HTML written
// by an administrator.
func (e *EmailService) SendNewsletter(sub *models.Subscriber, subject, body string) error {
	tr := e.i18n.For(sub.Language)

	return e.send(sub.Email, subject, tr, emailData{
		Title:          subject,
		HTML:           template.HTML(body),
		UnsubscribeURL: e.link("/api/subscribers/unsubscribe", sub.UnsubscribeToken),
	})
}

// SendReceipt confirms a completed checkout.
func (e *EmailService) SendReceipt(user *models.User, sub *models.Subscription) error {
	tr := e.i18n.For(user.Language)
	vars := map[string]interface{}{"Type": sub.Type.String(), "RenewalDate": sub.RenewalDate}
	subject := tr.TrData("email_receipt_subject", vars)

	return e.send(user.Email, subject, tr, emailData{
		Title:      subject,
		Paragraphs: []string{tr.TrData("email_receipt_body", vars)},
	})
}

// SendPaymentFailed tells the owner that a renewal charge failed.
func (e *EmailService) SendPaymentFailed(user *models.User, sub *models.Subscription) error {
	tr := e.i18n.For(user.Language)
	vars := map[string]interface{}{"Type": sub.Type.String()}
	subject := tr.Tr("email_payment_failed_subject")

	return e.send(user.Email, subject, tr, emailData{
		Title:      subject,
		Paragraphs: []string{tr.TrData("email_payment_failed_body", vars)},
	})
}

// SendRenewalReminder announces an upcoming renewal.
func (e *EmailService) SendRenewalReminder(user *models.User, sub *models.Subscription, renewalAt time.Time, daysUntil int) error {
	tr := e.i18n.For(user.Language)
	vars := map[string]interface{}{"Type": sub.Type.String(), "RenewalDate": tr.FormatDate(renewalAt)}

	subject := tr.Tr("email_reminder_today_subject")
	if daysUntil > 0 {
		subject = tr.TrCountData("email_reminder_subject", daysUntil, nil)
	}

	return e.send(user.Email, subject, tr, emailData{
		Title:      subject,
		Paragraphs: []string{tr.TrData("email_reminder_body", vars)},
	})
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
