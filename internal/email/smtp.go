package email

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	subjectLink       = "Your PDF is Ready"
	subjectAttachment = "Your PDF is Ready (Attached)"
)

type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *SMTPSender) SendDownloadLink(email, downloadURL string, summary string) {
	// Run in background to not block worker
	go s.send(email, linkMessage(email, downloadURL, summary))
}

func (s *SMTPSender) SendWithAttachment(emailAddr, filename string, content []byte, summary string) {
	boundary := "sheet2pdf-" + uuid.NewString()
	go s.send(emailAddr, attachmentMessage(emailAddr, filename, content, summary, boundary))
}

func (s *SMTPSender) send(to string, msg []byte) {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Local dev servers (like MailHog) don't need auth.
	var auth smtp.Auth
	if s.User != "" && s.Password != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}

	slog.Info("Sending email via SMTP", "to", to, "host", s.Host, "size", len(msg))
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, msg); err != nil {
		slog.Error("Failed to send email", "error", err, "to", to)
		return
	}
	slog.Info("Email sent successfully", "to", to)
}

func linkMessage(to, downloadURL, summary string) []byte {
	body := fmt.Sprintf("Hello,\n\nYour workbook has been converted.\n\n%s\n\nDownload Link:\n%s\n\nThis link will expire depending on your storage policy.\n", summary, downloadURL)

	return []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", to, subjectLink, body))
}

func attachmentMessage(to, filename string, content []byte, summary, boundary string) []byte {
	name := path.Base(filename)
	bodyText := fmt.Sprintf("Hello,\n\nYour workbook has been converted.\n\n%s\n\nPlease find the PDF attached.\n", summary)

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subjectAttachment)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n" + bodyText + "\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: %s; name=\"%s\"\r\n", attachmentType(name), name)
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\r\n", name)
	b.WriteString("\r\n")

	// RFC 2045 line limit
	encoded := base64.StdEncoding.EncodeToString(content)
	for i := 0; i < len(encoded); i += 76 {
		end := min(i+76, len(encoded))
		b.WriteString(encoded[i:end] + "\r\n")
	}

	fmt.Fprintf(&b, "\r\n--%s--", boundary)
	return []byte(b.String())
}

func attachmentType(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(filename, ".gz"):
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}
