package email

import (
	"log/slog"
	"time"
)

// Sender notifies a requester that their PDF is ready. Implementations must
// not block the calling worker.
type Sender interface {
	SendDownloadLink(email, downloadURL string, summary string)
	SendWithAttachment(email, filename string, content []byte, summary string)
}

// LogSender logs messages instead of delivering them. Used when no SMTP host
// is configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendDownloadLink(email, downloadURL string, summary string) {
	go func() {
		// Simulate network latency
		time.Sleep(100 * time.Millisecond)
		slog.Info("EMAIL SENT",
			"to", email,
			"url", downloadURL,
			"summary", summary,
		)
	}()
}

func (s *LogSender) SendWithAttachment(email, filename string, content []byte, summary string) {
	go func() {
		time.Sleep(100 * time.Millisecond)
		slog.Info("EMAIL SENT WITH ATTACHMENT",
			"to", email,
			"filename", filename,
			"size", len(content),
			"summary", summary,
		)
	}()
}
