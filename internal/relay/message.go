package relay

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission is the JSON body posted by the contact form.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (s Submission) trimmed() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Subject: strings.TrimSpace(s.Subject),
		Message: strings.TrimSpace(s.Message),
	}
}

// Validate returns the client-facing reason a submission is rejected, or ""
// when it is acceptable.
func (s Submission) Validate() string {
	if s.Name == "" || s.Email == "" || s.Subject == "" || s.Message == "" {
		return msgFieldsRequired
	}
	if !emailPattern.MatchString(s.Email) {
		return msgInvalidEmail
	}
	return ""
}

// Message is a provider-neutral outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Compose builds the notification for s. brand names the site in the subject
// and footer.
func Compose(s Submission, brand, from, to string) Message {
	text := fmt.Sprintf(`New contact form submission from %[1]s website:

Name: %[2]s
Email: %[3]s
Subject: %[4]s

Message:
%[5]s

---
This email was sent from the %[1]s contact form.`, brand, s.Name, s.Email, s.Subject, s.Message)

	e := html.EscapeString
	body := strings.ReplaceAll(e(s.Message), "\n", "<br>")
	htmlBody := fmt.Sprintf(`<html>
  <body>
    <h2>New Contact Form Submission</h2>
    <p><strong>Name:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
    <p><strong>Subject:</strong> %s</p>
    <hr>
    <p><strong>Message:</strong></p>
    <p>%s</p>
    <hr>
    <p style="color: #666; font-size: 12px;">This email was sent from the %s contact form.</p>
  </body>
</html>
`, e(s.Name), e(s.Email), e(s.Subject), body, e(brand))

	return Message{
		From:    from,
		To:      to,
		ReplyTo: s.Email,
		Subject: fmt.Sprintf("Contact Form: %s - %s", s.Subject, brand),
		Text:    text,
		HTML:    htmlBody,
	}
}
