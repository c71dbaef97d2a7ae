package mailer

import (
	"fmt"
	"html"
)

// PasswordResetEmail renders the password reset message. The raw token
// only ever appears inside this link; it is never logged or stored.
func PasswordResetEmail(firstName, resetURL string) (subject, body string) {
	name := html.EscapeString(firstName)
	if name == "" {
		name = "there"
	}

	subject = "Reset your FloWorx password"
	body = fmt.Sprintf(`<html>
<body style="font-family: sans-serif; color: #333;">
  <p>Hi %s,</p>
  <p>We received a request to reset your FloWorx password. Click the link below to choose a new one. The link expires in one hour and can be used once.</p>
  <p><a href="%s">Reset my password</a></p>
  <p>If you did not request this, you can safely ignore this email.</p>
  <p>&mdash; The FloWorx team</p>
</body>
</html>`, name, html.EscapeString(resetURL))
	return subject, body
}

// WelcomeEmail renders the post-registration message
func WelcomeEmail(firstName string) (subject, body string) {
	name := html.EscapeString(firstName)
	if name == "" {
		name = "there"
	}

	subject = "Welcome to FloWorx"
	body = fmt.Sprintf(`<html>
<body style="font-family: sans-serif; color: #333;">
  <p>Hi %s,</p>
  <p>Your FloWorx account is ready. Sign in to connect your mailbox and finish setting up your automated email workflows.</p>
  <p>&mdash; The FloWorx team</p>
</body>
</html>`, name)
	return subject, body
}
