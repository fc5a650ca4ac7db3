package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"time"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/config"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// Notifier verschickt Benachrichtigungen an Autoren und Gutachter.
type Notifier interface {
	Notify(ctx context.Context, to []string, subject, htmlBody string) error
}

// SMTPMailer verschickt Mails über SMTP mit STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPMailer erstellt den Mailer aus der Konfiguration.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	d.Timeout = 15 * time.Second
	return &SMTPMailer{dialer: d, from: cfg.SMTPFrom}
}

// Notify verschickt eine HTML-Mail an alle Empfänger.
func (m *SMTPMailer) Notify(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// LogNotifier schreibt Benachrichtigungen nur ins Log (kein SMTP konfiguriert).
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify loggt Empfänger und Betreff.
func (n LogNotifier) Notify(ctx context.Context, to []string, subject, htmlBody string) error {
	n.Logger.Info("Mail delivery disabled, notification logged",
		zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// Mails bauen die Texte der Benachrichtigungen.
type Mails struct {
	PortalURL string
}

// ReviewerAssigned liefert Betreff und Text für einen neu zugewiesenen Gutachter.
func (m Mails) ReviewerAssigned(sub *models.Submission) (string, string) {
	subject := "Review invitation: " + sub.Title
	body := fmt.Sprintf(`<p>You have been assigned to review the manuscript <strong>%s</strong>.</p>
<p>Please sign in to the reviewer dashboard to read the manuscript and submit your recommendation: <a href="%s/reviewer">%s/reviewer</a></p>`,
		html.EscapeString(sub.Title), m.PortalURL, m.PortalURL)
	return subject, body
}

// StatusChanged informiert den Autor über eine redaktionelle Entscheidung.
func (m Mails) StatusChanged(sub *models.Submission) (string, string) {
	subject := "Manuscript status update: " + sub.Title
	body := fmt.Sprintf(`<p>The status of your manuscript <strong>%s</strong> is now <strong>%s</strong>.</p>
<p>Details are available in your author dashboard: <a href="%s/dashboard">%s/dashboard</a></p>`,
		html.EscapeString(sub.Title), statusLabel(sub.Status), m.PortalURL, m.PortalURL)
	return subject, body
}

// ReviewReminder erinnert an ein überfälliges Gutachten.
func (m Mails) ReviewReminder(sub *models.Submission, review *models.SubmissionReview) (string, string) {
	subject := "Reminder: review pending for " + sub.Title
	body := fmt.Sprintf(`<p>Your review of <strong>%s</strong>, assigned on %s, is still open.</p>
<p><a href="%s/reviewer">Open the reviewer dashboard</a></p>`,
		html.EscapeString(sub.Title), review.AssignedAt.Format("2 January 2006"), m.PortalURL)
	return subject, body
}

func statusLabel(s models.SubmissionStatus) string {
	switch s {
	case models.SubmissionPending:
		return "Pending"
	case models.SubmissionUnderReview:
		return "Under review"
	case models.SubmissionRevisionRequested:
		return "Revision requested"
	case models.SubmissionAccepted:
		return "Accepted"
	case models.SubmissionRejected:
		return "Rejected"
	}
	return string(s)
}

// notify verschickt best effort, Fehler werden geloggt und verworfen.
func notify(ctx context.Context, n Notifier, log *zap.Logger, to *models.Profile, subject, body string) {
	if n == nil || to == nil || to.Email == "" {
		return
	}
	if err := n.Notify(ctx, []string{to.Email}, subject, body); err != nil {
		log.Warn("Notification failed", zap.String("to", to.Email), zap.String("subject", subject), zap.Error(err))
	}
}
