// Package email, yüksek öncelikli bildirimler için e-posta uyarısı gönderir.
//
// AlertSender interface'i ile gönderim detayları soyutlanır; implementasyon
// Resend API kullanır. Dashboard daemon'ı high priority bildirimleri buradan,
// medium olanları sadece log'a yazar.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v3"
)

// Alert, e-postaya dönüşecek bildirim alanları.
type Alert struct {
	Title     string
	Message   string
	Priority  string
	Category  string
	ActionURL string
}

// AlertSender, uyarı e-postası göndermek için interface.
type AlertSender interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// emailSender, Resend'in Emails servisinin kullandığımız kısmı.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// resendSender, Resend API ile e-posta gönderen AlertSender implementasyonu.
type resendSender struct {
	emails    emailSender
	fromEmail string
	to        []string
}

// NewResendSender, Resend client'ı ile yeni bir AlertSender oluşturur.
//
// fromEmail: Resend'de doğrulanmış domain altında bir adres.
// to: virgülle ayrılmış alıcı listesi.
func NewResendSender(apiKey, fromEmail, to string) (AlertSender, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, fmt.Errorf("email: api key and sender address are required")
	}
	recipients := splitRecipients(to)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("email: at least one recipient is required")
	}
	return &resendSender{
		emails:    resend.NewClient(apiKey).Emails,
		fromEmail: fromEmail,
		to:        recipients,
	}, nil
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background-color:#f8fafc;font-family:Arial,Helvetica,sans-serif;">
  <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
    <tr><td>
      <p style="color:#dc2626;font-size:12px;text-transform:uppercase;margin:0 0 8px 0;">{{.Priority}} priority · {{.Category}}</p>
      <h2 style="color:#0f172a;font-size:18px;margin:0 0 16px 0;">{{.Title}}</h2>
      <p style="color:#334155;font-size:15px;line-height:1.6;margin:0 0 24px 0;">{{.Message}}</p>
      {{if .ActionURL}}<a href="{{.ActionURL}}" style="color:#4f46e5;font-size:15px;">Open in dashboard</a>{{end}}
    </td></tr>
  </table>
</body>
</html>`))

// render, uyarının HTML gövdesini üretir. Alanlar html/template ile escape edilir.
func render(alert Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, alert); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return buf.String(), nil
}

// SendAlert, uyarı e-postasını gönderir.
func (s *resendSender) SendAlert(ctx context.Context, alert Alert) error {
	html, err := render(alert)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Pet Shop Admin <%s>", s.fromEmail),
		To:      s.to,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Priority), alert.Title),
		Html:    html,
	}

	if _, err := s.emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

func splitRecipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
