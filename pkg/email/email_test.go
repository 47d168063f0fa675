package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/resend/resend-go/v3"
)

type fakeEmails struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeEmails) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{}, nil
}

func TestSendAlert(t *testing.T) {
	c := qt.New(t)
	fake := &fakeEmails{}
	s := &resendSender{emails: fake, fromEmail: "alerts@petshop.test", to: []string{"ops@petshop.test"}}

	err := s.SendAlert(context.Background(), Alert{
		Title:     "Stock <low>",
		Message:   "Dog food below threshold",
		Priority:  "high",
		Category:  "inventory",
		ActionURL: "https://admin.petshop.test/products/42",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.sent, qt.HasLen, 1)

	sent := fake.sent[0]
	c.Assert(sent.From, qt.Equals, "Pet Shop Admin <alerts@petshop.test>")
	c.Assert(sent.To, qt.DeepEquals, []string{"ops@petshop.test"})
	c.Assert(sent.Subject, qt.Equals, "[HIGH] Stock <low>")
	c.Assert(strings.Contains(sent.Html, "Stock &lt;low&gt;"), qt.IsTrue)
	c.Assert(strings.Contains(sent.Html, `href="https://admin.petshop.test/products/42"`), qt.IsTrue)
}

func TestSendAlertError(t *testing.T) {
	c := qt.New(t)
	s := &resendSender{emails: &fakeEmails{err: errors.New("rate limited")}, fromEmail: "a@b.test", to: []string{"c@d.test"}}

	err := s.SendAlert(context.Background(), Alert{Title: "x", Priority: "high"})
	c.Assert(err, qt.ErrorMatches, "failed to send alert email: rate limited")
}

func TestNewResendSenderValidation(t *testing.T) {
	c := qt.New(t)

	_, err := NewResendSender("", "a@b.test", "c@d.test")
	c.Assert(err, qt.ErrorMatches, ".*api key and sender address are required")

	_, err = NewResendSender("re_123", "a@b.test", " , ")
	c.Assert(err, qt.ErrorMatches, ".*at least one recipient is required")

	s, err := NewResendSender("re_123", "a@b.test", "c@d.test, e@f.test")
	c.Assert(err, qt.IsNil)
	c.Assert(s.(*resendSender).to, qt.DeepEquals, []string{"c@d.test", "e@f.test"})
}
