// internal/notification/email.go

package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSender is the part of the SendGrid client the channel uses.
type EmailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// EmailChannel delivers notifications by email via SendGrid
type EmailChannel struct {
	sender   EmailSender
	from     string
	contacts ContactDirectory
	kinds    kindFilter
}

// NewSendGridEmailChannel creates an email channel backed by SendGrid.
// kinds limits which notifications are emailed; none means all.
func NewSendGridEmailChannel(apiKey, from string, contacts ContactDirectory, kinds ...Kind) (*EmailChannel, error) {
	if apiKey == "" || from == "" {
		return nil, fmt.Errorf("incomplete SendGrid configuration")
	}
	return newEmailChannel(sendgrid.NewSendClient(apiKey), from, contacts, kinds...), nil
}

func newEmailChannel(sender EmailSender, from string, contacts ContactDirectory, kinds ...Kind) *EmailChannel {
	return &EmailChannel{
		sender:   sender,
		from:     from,
		contacts: contacts,
		kinds:    newKindFilter(kinds),
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Accepts(kind Kind) bool { return c.kinds.accepts(kind) }

// Send emails msg to the user's address on file
func (c *EmailChannel) Send(ctx context.Context, msg *Message) error {
	contact, err := c.contacts.Contact(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if contact.Email == "" {
		return ErrNoContact
	}

	html, err := RenderEmailHTML(msg)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	from := mail.NewEmail("Kiekky", c.from)
	to := mail.NewEmail("", contact.Email)
	message := mail.NewSingleEmail(from, msg.Title, to, msg.Body, html)

	response, err := c.sender.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d", response.StatusCode)
	}

	log.Printf("Successfully sent %s email to user %d", msg.Kind, msg.UserID)
	return nil
}
