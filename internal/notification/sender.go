package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"
)

// LogSender renders each task and writes it to the log. Used when no mail
// transport is configured.
type LogSender struct {
	Renderer Renderer
	Logger   *log.Logger
}

func (s LogSender) Send(_ context.Context, task Task) error {
	email, err := s.Renderer.Render(task)
	if err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("notification: mail id=%s to=%s subject=%q", task.ID, email.To, email.Subject)
	return nil
}

// DialFunc opens the connection to the mail server. It has the signature of
// net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers rendered emails over SMTP. The whole session is bound to
// the send context: a cancelled or expired context closes the exchange, so no
// delivery can complete after Send returned.
type SMTPSender struct {
	cfg      SMTPConfig
	renderer Renderer
	dial     DialFunc
}

func NewSMTPSender(cfg SMTPConfig, renderer Renderer) *SMTPSender {
	d := &net.Dialer{Timeout: 30 * time.Second}
	return &SMTPSender{cfg: cfg, renderer: renderer, dial: d.DialContext}
}

func (s *SMTPSender) Send(ctx context.Context, task Task) error {
	email, err := s.renderer.Render(task)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := s.dial(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial addr=%s: %w", s.cfg.Addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("smtp set deadline: %w", err)
		}
	}
	// cancellation unblocks whatever read or write is pending
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := s.deliver(conn, email); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// connection deadlines only ever come from ctx
			<-ctx.Done()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send to=%s: %w", email.To, ctxErr)
		}
		return fmt.Errorf("smtp send to=%s: %w", email.To, err)
	}
	return nil
}

func (s *SMTPSender) deliver(conn net.Conn, email Email) error {
	host := s.cfg.Addr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(email.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(s.cfg.From, email)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from string, email Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}
