package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/google/uuid"
)

type SMTPProvider struct {
	cfg config.SMTPConfig
}

var _ Provider = (*SMTPProvider)(nil)

func NewSMTPProvider(cfg config.SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Channel() domain.Channel {
	return domain.ChannelEmail
}

func (p *SMTPProvider) IsConfigured() bool {
	return p.cfg.Host != "" && p.cfg.Username != ""
}

func (p *SMTPProvider) from() string {
	if p.cfg.From != "" {
		return p.cfg.From
	}
	return p.cfg.Username
}

func (p *SMTPProvider) Send(ctx context.Context, opts SendOptions) SendResult {
	if !p.IsConfigured() {
		return Failed(NotConfiguredError(domain.ChannelEmail))
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), p.cfg.Host)
	if err := p.send(ctx, opts, messageID); err != nil {
		return Failed(fmt.Errorf("%w: %w", types.ErrProviderFailure, err))
	}

	return SendResult{Success: true, MessageID: messageID}
}

func (p *SMTPProvider) send(ctx context.Context, opts SendOptions, messageID string) error {
	from := p.from()
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", opts.To) +
			fmt.Sprintf("Subject: %s\r\n", opts.Subject) +
			fmt.Sprintf("Message-ID: %s\r\n", messageID) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			opts.Body,
	)

	serverAddr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", serverAddr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Implicit TLS on 465, STARTTLS otherwise.
	if p.cfg.Port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: p.cfg.Host})
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Quit()

	if p.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: p.cfg.Host}); err != nil {
				return err
			}
		}
	}

	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(opts.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
