// internal/notification/templates.go

package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// RenderTemplate returns the title and body for a notification kind
func RenderTemplate(kind Kind, data Payload) (title, body string) {
	switch kind {
	case KindNewMatch:
		title = "You have a new match! 💕"
		body = fmt.Sprintf("You have %d hours to decide if you'd like to meet. Don't keep them waiting!",
			getIntValue(data, "hours_remaining", 24))

	case KindPartnerConfirmed:
		title = "Your match said yes! 👀"
		body = "Your match confirmed interest. Confirm too to start chatting."

	case KindMatchConfirmed:
		title = "It's a Match! 🎉"
		body = "You both said yes. Your conversation is open, start chatting now."

	case KindMatchDeclined:
		title = "Match update"
		body = "Your match decided not to continue. Thanks for being respectful, new matches are on the way."

	case KindExtensionRequested:
		title = "More time to decide ⏳"
		body = fmt.Sprintf("Your match asked for more time. The window now closes in %d hours.",
			getIntValue(data, "hours_remaining", 12))

	case KindMatchExpired:
		title = "Match expired"
		body = "This match window closed before you both confirmed."

	case KindExpiryReminder:
		title = "Your match window is closing ⏰"
		body = fmt.Sprintf("Only %d hours left to decide on your match.",
			getIntValue(data, "hours_remaining", 1))

	case KindDonationPrompt:
		title = "Enjoying Kiekky? 💝"
		body = "You just scheduled a date! Consider supporting Kiekky to keep matches thoughtful."

	default:
		title = "Kiekky"
		body = getStringValue(data, "message", "You have a new notification")
	}

	return title, body
}

const baseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
</head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
        <h1>{{.Title}}</h1>
    </div>
    <div style="background: white; padding: 30px; border: 1px solid #e0e0e0; border-radius: 0 0 10px 10px;">
        <p>{{.Body}}</p>
    </div>
    <div style="text-align: center; padding: 20px; color: #666; font-size: 14px;">
        <p>© Kiekky. All rights reserved.</p>
    </div>
</body>
</html>
`

var emailTemplate = template.Must(template.New("email").Parse(baseEmailTemplate))

// RenderEmailHTML renders a message into the HTML email layout
func RenderEmailHTML(msg *Message) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func getStringValue(data Payload, key, defaultValue string) string {
	if val, ok := data[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

func getIntValue(data Payload, key string, defaultValue int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}
