package mail

import "fmt"

// VerificationEmail builds the subject and body carrying a six digit email
// verification code.
func VerificationEmail(firstName, code string) (subject, html string) {
	subject = "Verify your CareConnect account"
	html = fmt.Sprintf(`<p>Hi %s,</p>
<p>Your CareConnect verification code is:</p>
<h2>%s</h2>
<p>Enter this code to activate your account. The code expires in 24 hours.</p>`, firstName, code)
	return subject, html
}

// WelcomeEmail builds the message sent once an account is verified.
func WelcomeEmail(firstName string) (subject, html string) {
	subject = "Welcome to CareConnect"
	html = fmt.Sprintf(`<p>Hi %s,</p>
<p>Your email address has been verified. You can now book appointments and
manage your care online.</p>`, firstName)
	return subject, html
}
