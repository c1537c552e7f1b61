package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-errors"
	verifyreset "github.com/goliatone/go-verify-reset"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, to, subject, htmlBody string) error

func (f SenderFunc) Send(ctx context.Context, to, subject, htmlBody string) error {
	return f(ctx, to, subject, htmlBody)
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// InsecureSkipVerify skips TLS verification, for local catchers like MailHog.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// SMTPSender sends HTML mail with net/smtp, upgrading with STARTTLS when
// the server offers it.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := buildMessage(s.cfg.From, to, subject, htmlBody)

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "smtp dial failed")
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "smtp handshake failed")
	}
	defer c.Quit()

	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: s.cfg.InsecureSkipVerify,
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "smtp starttls failed")
		}
	}

	if s.cfg.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return errors.Wrap(err, errors.CategoryAuth, "smtp auth failed")
			}
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	return w.Close()
}

func buildMessage(from, to, subject, htmlBody string) string {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + encodeSubject(subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return sb.String()
}

// encodeSubject Q-encodes non ASCII subjects (RFC 2047).
func encodeSubject(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || s[i] < 0x20 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	var b strings.Builder
	b.WriteString("=?UTF-8?Q?")
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	b.WriteString("?=")
	return b.String()
}

// Links builds the URLs embedded in emails.
type Links struct {
	BaseURL    string
	VerifyPath string
	ResetPath  string
}

func (l Links) withDefaults() Links {
	l.BaseURL = strings.TrimRight(l.BaseURL, "/")
	if l.VerifyPath == "" {
		l.VerifyPath = "/verify"
	}
	if l.ResetPath == "" {
		l.ResetPath = "/reset"
	}
	return l
}

// Mailer is a verifyreset.Notifier that renders a template per action and
// hands it to a Sender.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	links    Links
	logger   verifyreset.Logger
}

var _ verifyreset.Notifier = (*Mailer)(nil)

func NewMailer(sender Sender, renderer *Renderer, links Links) *Mailer {
	if renderer == nil {
		renderer = NewRenderer(nil)
	}
	return &Mailer{
		sender:   sender,
		renderer: renderer,
		links:    links.withDefaults(),
		logger:   nopLogger{},
	}
}

func (m *Mailer) WithLogger(logger verifyreset.Logger) *Mailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Notify implements verifyreset.Notifier. Email change confirmations go
// to the new address.
func (m *Mailer) Notify(ctx context.Context, action string, user *verifyreset.User, opts map[string]any, newEmail string) error {
	if user == nil {
		return errors.New("notification requires a user", errors.CategoryBadInput)
	}

	data := m.context(action, user, opts, newEmail)
	subject, body, err := m.renderer.Render(action, data)
	if err != nil {
		return err
	}

	to := user.Email
	if action == verifyreset.NotifyEmailChange && newEmail != "" {
		to = newEmail
	}

	m.logger.Debug("sending notification", "action", action, "to", to)

	if err := m.sender.Send(ctx, to, subject, body); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send notification email").
			WithMetadata(map[string]any{"action": action})
	}
	return nil
}

func (m *Mailer) context(action string, user *verifyreset.User, opts map[string]any, newEmail string) pongo2.Context {
	data := pongo2.Context{
		"user":      user,
		"new_email": newEmail,
		"options":   opts,
		"link":      "",
	}

	switch action {
	case verifyreset.NotifySendResetPwd:
		if user.ResetToken != nil {
			data["link"] = m.links.BaseURL + m.links.ResetPath + "/" + *user.ResetToken
			data["token"] = *user.ResetToken
		}
		if user.ResetShortToken != nil {
			data["short_token"] = *user.ResetShortToken
		}
		if user.ResetExpires != nil {
			data["expires"] = user.ResetExpires.Format("2006-01-02 15:04 MST")
		}
	case verifyreset.NotifyResendVerifySignup, verifyreset.NotifyEmailChange:
		if action == verifyreset.NotifyEmailChange && len(user.VerifyChanges) == 0 {
			break
		}
		if user.VerifyToken != nil {
			data["link"] = m.links.BaseURL + m.links.VerifyPath + "/" + *user.VerifyToken
			data["token"] = *user.VerifyToken
		}
		if user.VerifyShortToken != nil {
			data["short_token"] = *user.VerifyShortToken
		}
	}

	return data
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
