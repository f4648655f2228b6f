package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"matchmaker/internal/config"
)

// Sender delivers account lifecycle notices.
type Sender interface {
	SendApprovalNotice(ctx context.Context, toEmail, displayName string) error
}

type LogSender struct {
	baseURL string
}

func (s LogSender) SendApprovalNotice(ctx context.Context, toEmail, displayName string) error {
	_ = ctx
	log.Printf("approval notice to=%s name=%q login=%s", toEmail, displayName, loginLink(s.baseURL))
	return nil
}

type SMTPSender struct {
	host    string
	port    int
	from    string
	baseURL string
}

func NewSender(cfg config.Config) Sender {
	switch cfg.NotifySender {
	case "smtp":
		return SMTPSender{
			host:    cfg.SMTPHost,
			port:    cfg.SMTPPort,
			from:    cfg.NotifyFrom,
			baseURL: cfg.SiteBaseURL,
		}
	default:
		return LogSender{baseURL: cfg.SiteBaseURL}
	}
}

func (s SMTPSender) SendApprovalNotice(ctx context.Context, toEmail, displayName string) error {
	_ = ctx
	raw, err := BuildApprovalNotice(s.from, toEmail, displayName, s.baseURL, time.Now())
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{toEmail}, raw)
}

// BuildApprovalNotice renders the RFC 5322 message telling a member their
// profile is live.
func BuildApprovalNotice(from, toEmail, displayName, baseURL string, at time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(at)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Name: displayName, Address: toEmail}})
	h.SetSubject("Your profile has been approved")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hello %s,\r\n\r\nAn administrator has approved your profile. You can now sign in:\r\n%s\r\n", name, loginLink(baseURL))
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func loginLink(baseURL string) string {
	link := strings.TrimRight(baseURL, "/")
	return link + "/login"
}
