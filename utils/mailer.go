package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

type EmailData struct {
	Subject   string
	To        []string
	CC        []string
	Template  string
	Data      interface{}
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"reminder_digest": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 640px; margin: 0 auto; padding: 20px; }
        table { border-collapse: collapse; width: 100%; }
        td, th { border-bottom: 1px solid #eee; padding: 6px; text-align: left; }
        .urgent { color: #c0392b; font-weight: bold; }
    </style>
</head>
<body>
    <h2>{{len .Reminders}} overdue reminders on {{.Date}}</h2>
    <table>
        <tr><th>Lister</th><th>Lead</th><th>Due</th><th>Priority</th><th>Note</th></tr>
        {{range .Reminders}}
        <tr>
            <td>{{.UserType}} #{{.UserID}}</td>
            <td>{{.GroupedLeadKey}}</td>
            <td>{{.ReminderDate}} {{.ReminderTime}}</td>
            <td{{if eq .Priority "urgent"}} class="urgent"{{end}}>{{.Priority}}</td>
            <td>{{.NoteText}}</td>
        </tr>
        {{end}}
    </table>
</body>
</html>`,
}

// Mailer sends templated mail through one SMTP account
type Mailer struct {
	Dialer    *gomail.Dialer
	FromName  string
	FromEmail string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		Dialer:    gomail.NewDialer(host, port, username, password),
		FromName:  "Estate Leads",
		FromEmail: from,
	}
}

// BuildMessage renders data into a ready-to-send message
func (m *Mailer) BuildMessage(data EmailData) (*gomail.Message, error) {
	if data.FromEmail == "" {
		data.FromEmail = m.FromEmail
	}
	if data.FromName == "" {
		data.FromName = m.FromName
	}
	if len(data.To) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	tmplContent, ok := emailTemplates[data.Template]
	if !ok {
		return nil, fmt.Errorf("template '%s' not found", data.Template)
	}
	tmpl, err := template.New(data.Template).Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("error parsing template: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data.Data); err != nil {
		return nil, fmt.Errorf("error executing template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", data.FromEmail, data.FromName)
	msg.SetHeader("To", data.To...)
	if len(data.CC) > 0 {
		msg.SetHeader("Cc", data.CC...)
	}
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}

func (m *Mailer) Send(data EmailData) error {
	msg, err := m.BuildMessage(data)
	if err != nil {
		return err
	}
	if err := m.Dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
