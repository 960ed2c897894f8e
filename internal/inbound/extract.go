package inbound

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbox"
)

// ExtractText converts an inbox message into the text offered to the retrieval
// service. It returns ("", false) if the message should be skipped.
func ExtractText(msg inbox.Message, logger *zap.Logger) (string, bool) {
	switch strings.ToLower(msg.Type) {
	case "sms", "":
		if strings.TrimSpace(msg.Body) == "" {
			return "", false
		}
		return msg.Body, true

	case "mms":
		return formatMMS(msg), true

	default:
		if logger != nil {
			logger.Info("unsupported message type",
				zap.String("type", msg.Type),
				zap.String("from", msg.From),
				zap.String("id", msg.ID))
		}
		return "", false
	}
}

// formatMMS builds a text representation for an MMS. The result is always non-empty.
func formatMMS(msg inbox.Message) string {
	parts := []string{"[mms]"}
	if msg.Body != "" {
		parts = append(parts, msg.Body)
	}
	if msg.Media != nil {
		if msg.Media.MimeType != "" {
			parts = append(parts, "("+msg.Media.MimeType+")")
		}
		if msg.Media.URL != "" {
			parts = append(parts, msg.Media.URL)
		}
	}
	return strings.Join(parts, " ")
}
