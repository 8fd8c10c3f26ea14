// internal/notification/sms.go

package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender is the part of the Twilio API the channel uses.
type SMSSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSChannel delivers notifications by SMS via Twilio
type SMSChannel struct {
	sender   SMSSender
	from     string
	contacts ContactDirectory
	kinds    kindFilter
}

// NewTwilioSMSChannel creates an SMS channel backed by Twilio.
// kinds limits which notifications are texted; none means all.
func NewTwilioSMSChannel(accountSID, authToken, from string, contacts ContactDirectory, kinds ...Kind) (*SMSChannel, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("incomplete Twilio configuration")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return newSMSChannel(client.Api, from, contacts, kinds...), nil
}

func newSMSChannel(sender SMSSender, from string, contacts ContactDirectory, kinds ...Kind) *SMSChannel {
	return &SMSChannel{
		sender:   sender,
		from:     from,
		contacts: contacts,
		kinds:    newKindFilter(kinds),
	}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Accepts(kind Kind) bool { return c.kinds.accepts(kind) }

// Send texts msg to the user's phone on file
func (c *SMSChannel) Send(ctx context.Context, msg *Message) error {
	contact, err := c.contacts.Contact(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if contact.Phone == "" {
		return ErrNoContact
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(contact.Phone)
	params.SetFrom(c.from)
	params.SetBody(fmt.Sprintf("Kiekky: %s", msg.Body))

	resp, err := c.sender.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS via Twilio: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		log.Printf("Successfully sent %s SMS to user %d with SID: %s", msg.Kind, msg.UserID, *resp.Sid)
	}
	return nil
}
