package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"

	"github.com/rs/zerolog/log"
)

//go:embed emails/*.html
var emailFS embed.FS

var emailTemplates = template.Must(template.ParseFS(emailFS, "emails/*.html"))

// Message is one outbound email, addressed to a single recipient.
// Text is the plain part; HTML, when set, is attached as the alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message. Implemented by MailService over SMTP
// and by fakes in tests.
type Sender interface {
	Send(msg Message) error
}

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Warn().Msg("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

// Send delivers one multipart (text/HTML) message over SMTP.
func (s *MailService) Send(msg Message) error {
	if !s.Enabled {
		log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Mail disabled, dropping message")
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	body, err := buildMultipart(msg)
	if err != nil {
		return fmt.Errorf("failed to build message for %s: %w", msg.To, err)
	}

	raw := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: Newsline <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s", msg.To, s.From, msg.Subject, body))

	if err := smtp.SendMail(addr, auth, s.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

// buildMultipart returns the MIME headers and body below the envelope
// headers: a multipart/alternative with text/plain first, text/html last.
func buildMultipart(msg Message) (string, error) {
	if msg.HTML == "" {
		return "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n" + msg.Text, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())

	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=\"UTF-8\""}})
	if err != nil {
		return "", err
	}
	if _, err := part.Write([]byte(msg.Text)); err != nil {
		return "", err
	}

	part, err = w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=\"UTF-8\""}})
	if err != nil {
		return "", err
	}
	if _, err := part.Write([]byte(msg.HTML)); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderEmail executes one of the embedded email templates.
func renderEmail(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
