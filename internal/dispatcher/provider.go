package dispatcher

import (
	"context"
	"errors"
	"time"

	"gopkg.in/gomail.v2"
)

// ErrProviderUnavailable is returned while the breaker is open. Retriable:
// the message goes back to the queue and is redelivered later.
var ErrProviderUnavailable = errors.New("email provider unavailable")

type Email struct {
	To      string
	Subject string
	Body    string // HTML
}

// Provider is a notification delivery backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Email) error
}

type SMTPOpts struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	SenderName  string

	// Breaker tuning; zero values pick the defaults.
	FailThreshold int
	OpenFor       time.Duration
}

// SMTPProvider sends mail over SMTP behind a circuit breaker, so a dead
// relay fails fast instead of timing out on every delivery.
type SMTPProvider struct {
	dialer     *gomail.Dialer
	senderAddr string
	senderName string
	br         *MicroBreaker
}

func NewSMTPProvider(opts SMTPOpts) *SMTPProvider {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = 3
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 15 * time.Second
	}

	return &SMTPProvider{
		dialer:     gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password),
		senderAddr: opts.SenderEmail,
		senderName: opts.SenderName,
		br:         NewMicroBreaker(opts.FailThreshold, opts.OpenFor),
	}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.br.TryAcquire() {
		return ErrProviderUnavailable
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.senderAddr, p.senderName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	if err := p.dialer.DialAndSend(m); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()
	return nil
}
