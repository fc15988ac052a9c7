package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
)

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(conf *config.Notify) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(conf.SMTPHost, strconv.Itoa(conf.SMTPPort)),
		from:     conf.SMTPFrom,
		sendMail: smtp.SendMail,
	}
	if conf.SMTPUser != "" {
		s.auth = smtp.PlainAuth("", conf.SMTPUser, conf.SMTPPassword, conf.SMTPHost)
	}
	return s
}

// Send does not observe ctx once the SMTP dialog has started.
func (s *SMTPSender) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, n, time.Now())
	if err := s.sendMail(s.addr, s.auth, s.from, []string{n.Recipient}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.Recipient, err)
	}
	return nil
}

func (s *SMTPSender) Close() error {
	return nil
}

func buildMessage(from string, n domain.Notification, now time.Time) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@artisanmart>\r\n", uuid.NewString())
	fmt.Fprintf(&b, "X-Template: %s\r\n", n.Template)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")

	return b.Bytes()
}
