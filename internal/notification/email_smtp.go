package notification

import (
	"fmt"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

// SMTPConfig is the connection information for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpEmailSender struct {
	server *mail.SMTPServer
	from   string
}

// NewSMTPEmailSender returns a sender that opens one SMTP connection per message.
func NewSMTPEmailSender(cfg SMTPConfig) EmailSender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	switch cfg.Port {
	case 465:
		server.Encryption = mail.EncryptionSSLTLS
	case 25, 1025:
		server.Encryption = mail.EncryptionNone
	default:
		server.Encryption = mail.EncryptionSTARTTLS
	}

	return &smtpEmailSender{server: server, from: cfg.From}
}

func (s *smtpEmailSender) Send(msg Message) error {
	client, err := s.server.Connect()
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}

	email := mail.NewMSG()
	email.SetFrom(s.from).AddTo(msg.To).SetSubject(msg.Subject)
	email.SetBody(mail.TextHTML, msg.HTML)
	if msg.Text != "" {
		email.AddAlternative(mail.TextPlain, msg.Text)
	}
	if email.Error != nil {
		return fmt.Errorf("build email: %w", email.Error)
	}

	if err := email.Send(client); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
