package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailersend/mailersend-go"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
)

// ErrEmail is returned when MailerSend rejects a message.
var ErrEmail = errors.New("email send failed")

type mailSender interface {
	Send(ctx context.Context, message *mailersend.Message) (*mailersend.Response, error)
}

// Email sends notifications through MailerSend. The subject is the first
// line of the message.
type Email struct {
	sender     mailSender
	newMessage func() *mailersend.Message
	from       mailersend.From
	to         []mailersend.Recipient
}

// NewEmail creates a MailerSend notifier. MAILERSEND_TO may hold a
// comma-separated list of addresses.
func NewEmail(cfg config.EmailConfig) *Email {
	ms := mailersend.NewMailersend(cfg.APIKey)

	var to []mailersend.Recipient
	for _, addr := range strings.Split(cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, mailersend.Recipient{Email: addr})
		}
	}

	return &Email{
		sender:     ms.Email,
		newMessage: ms.Email.NewMessage,
		from:       mailersend.From{Name: cfg.FromName, Email: cfg.FromEmail},
		to:         to,
	}
}

func (e *Email) Notify(ctx context.Context, text string) error {
	subject, _, _ := strings.Cut(text, "\n")

	message := e.newMessage()
	message.SetFrom(e.from)
	message.SetRecipients(e.to)
	message.SetSubject(strings.TrimSpace(subject))
	message.SetText(text)

	if _, err := e.sender.Send(ctx, message); err != nil {
		return fmt.Errorf("%w: %v", ErrEmail, err)
	}
	return nil
}

var _ Notifier = (*Email)(nil)
