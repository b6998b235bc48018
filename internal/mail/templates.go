// AngelaMos | 2026
// templates.go

package mail

import (
	"fmt"
	"html"
	"time"
)

func VerificationMessage(to, username, code string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())

	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
<p>Your verification code is: <b>%s</b></p>
<p>This code will expire in %d minutes.</p>
<p>If you did not request this, please ignore this email.</p>`,
		html.EscapeString(username), code, minutes)

	textBody := fmt.Sprintf(`Hello %s,

Your verification code is: %s
This code will expire in %d minutes.
If you did not request this, please ignore this email.`,
		username, code, minutes)

	return Message{
		To:      to,
		Subject: "Your verification code",
		HTML:    htmlBody,
		Text:    textBody,
	}
}
