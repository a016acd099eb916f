package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// Email notifies users about their own account and submissions.
type Email struct {
	Config  EmailConfig
	AppName string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg EmailConfig, appName string) *Email {
	return &Email{Config: cfg, AppName: appName, send: smtp.SendMail}
}

func (e *Email) Notify(ctx context.Context, ev Event) error {
	if ev.Email == "" {
		return nil
	}
	subject, body, ok := e.render(ev)
	if !ok {
		return nil
	}
	return e.sendEmail(ev.Email, subject, body)
}

func (e *Email) render(ev Event) (string, string, bool) {
	first := firstName(ev.Name)
	switch ev.Kind {
	case UserRegistered:
		return fmt.Sprintf("Welcome to %s!", e.AppName), fmt.Sprintf(`<h2>Welcome, %s!</h2>
<p>Your account is ready. Send evidence for any reward in the catalog to start earning points.</p>
<p>The %s Team</p>`, first, e.AppName), true
	case SubmissionApproved:
		return fmt.Sprintf("Reward approved - %s", ev.RewardTitle), fmt.Sprintf(`<h2>Your submission was approved</h2>
<p>Hi %s,</p>
<p>Your evidence for <strong>%s</strong> was approved and <strong>%d points</strong> were added to your balance.</p>
<p>The %s Team</p>`, first, ev.RewardTitle, ev.Points, e.AppName), true
	case SubmissionRejected:
		return fmt.Sprintf("Submission rejected - %s", ev.RewardTitle), fmt.Sprintf(`<h2>Your submission was rejected</h2>
<p>Hi %s,</p>
<p>Your evidence for <strong>%s</strong> was rejected.</p>
<p>Reason: %s</p>
<p>You can send new evidence at any time.</p>
<p>The %s Team</p>`, first, ev.RewardTitle, ev.Reason, e.AppName), true
	}
	return "", "", false
}

func (e *Email) sendEmail(to, subject, htmlBody string) error {
	cfg := e.Config
	if !cfg.Configured() {
		return fmt.Errorf("SMTP not configured")
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		cfg.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return e.send(cfg.Host+":"+cfg.Port, auth, cfg.From, []string{to}, msg)
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}
