package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

// Message is one notification about a newly published post.
type Message struct {
	Subject     string
	Title       string
	Link        string
	BookingLink string
	Platform    string
	PublishedAt time.Time
}

type MailerConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	To       string
	DryRun   bool
}

// Mailer sends one plain-text email per new post over SMTP with implicit
// TLS. No retry; a failed send leaves the persisted state untouched so the
// next run re-attempts the same post.
type Mailer struct {
	cfg MailerConfig
	log *slog.Logger
}

func NewMailer(cfg MailerConfig, log *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	body := renderBody(msg)

	if m.cfg.DryRun {
		m.log.InfoContext(ctx, "Dry run so email is not sent",
			"subject", msg.Subject,
			"to", m.cfg.To,
			"body", body)

		return nil
	}

	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("%w: set sender: %w", models.ErrConfig, err)
	}
	if err := mm.To(m.cfg.To); err != nil {
		return fmt.Errorf("%w: set recipient: %w", models.ErrConfig, err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.From),
		mail.WithPassword(m.cfg.Password))
	if err != nil {
		return fmt.Errorf("%w: create SMTP client: %w", models.ErrSend, err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w: %w", models.ErrAuth, err)
		}

		return fmt.Errorf("%w: %w", models.ErrSend, err)
	}

	m.log.InfoContext(ctx, "Email is sent",
		"subject", msg.Subject,
		"to", m.cfg.To)

	return nil
}

func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == 535 {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "auth")
}

func renderBody(msg Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New post published: %s\n", msg.Title)
	if !msg.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.PublishedAt.UTC().Format(time.RFC1123))
	}
	b.WriteString("\n")

	switch {
	case msg.BookingLink != "" && msg.Platform != "":
		fmt.Fprintf(&b, "Ticket link (%s): %s\n", msg.Platform, msg.BookingLink)
	case msg.BookingLink != "":
		fmt.Fprintf(&b, "Ticket link: %s\n", msg.BookingLink)
	default:
		b.WriteString("No specific booking link found.\n")
	}

	fmt.Fprintf(&b, "Post link: %s\n", msg.Link)

	return b.String()
}
