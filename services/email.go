package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string

	templates map[string]*template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")

	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "Student Reader"
	}
	if svc.fromEmail == "" {
		svc.fromEmail = svc.smtpUsername
	}

	svc.templates = make(map[string]*template.Template)

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	err := svc.loadTemplates()
	if err != nil {
		log.WithError(err).Error("Failed to load email templates")
		// Don't fail startup, just log the error
	}

	return nil
}

const loginCodeHTML = `
<html>
    <body>
        <h2>Your Login Code</h2>
        <p>Your temporary login code is: <strong>{{.Code}}</strong></p>
        <p>You have {{.MaxAttempts}} attempts to enter this code correctly.</p>
        <p>If you exceed the maximum attempts, you can always request a new code.</p>
        <p>If you didn't request this code, please ignore this email.</p>
    </body>
</html>
`

const registrationCodeHTML = `
<html>
    <body>
        <h2>Welcome to Student Reader, {{.FullName}}!</h2>
        <p>Your registration verification code is: <strong>{{.Code}}</strong></p>
        <p>This code will expire in {{.ExpiryMinutes}} minutes.</p>
        <p>If you didn't request this registration, please ignore this email.</p>
    </body>
</html>
`

func (svc *EmailService) loadTemplates() error {
	pages := map[string]string{
		"login_code":        loginCodeHTML,
		"registration_code": registrationCodeHTML,
	}

	for name, body := range pages {
		tmpl, err := template.New(name).Parse(body)
		if err != nil {
			return fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		svc.templates[name] = tmpl
	}
	return nil
}

// SendLoginCode emails the one-time login code.
func (svc *EmailService) SendLoginCode(email, code string, maxAttempts int) error {
	return svc.send(email, "Your Login Code", "login_code", map[string]interface{}{
		"Code":        code,
		"MaxAttempts": maxAttempts,
	})
}

// SendRegistrationCode emails the verification code for a pending registration.
func (svc *EmailService) SendRegistrationCode(email, fullName, code string, expiryMinutes int) error {
	return svc.send(email, "Complete Your Registration", "registration_code", map[string]interface{}{
		"FullName":      fullName,
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	})
}

func (svc *EmailService) send(to, subject, templateName string, data map[string]interface{}) error {
	tmpl, ok := svc.templates[templateName]
	if !ok {
		return fmt.Errorf("email template %s not loaded", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", svc.fromName, svc.fromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := svc.smtpHost + ":" + svc.smtpPort
	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	if err := smtp.SendMail(addr, auth, svc.fromEmail, []string{to}, msg.Bytes()); err != nil {
		log.WithFields(log.Fields{
			"to":       to,
			"template": templateName,
			"error":    err.Error(),
		}).Error("Failed to send email")
		return err
	}

	return nil
}
