package telegram

import (
	"fmt"
	"time"
)

// FormatSecurityAlertMessage builds the ops alert sent when a chat session is
// blocked for repeated security violations.
func FormatSecurityAlertMessage(now time.Time, sessionID string, warnings int, blockedUntil time.Time) string {
	return fmt.Sprintf(
		"🚨 *Security Block*\nSession: `%s`\nWarnings: %d\nBlocked until: %s\nTime: %s",
		sessionID,
		warnings,
		blockedUntil.Format("2006-01-02 15:04:05"),
		now.Format("2006-01-02 15:04:05"),
	)
}

// FormatErrorAlertMessage builds the ops alert for unrecoverable processing errors.
func FormatErrorAlertMessage(now time.Time, detail string) string {
	return fmt.Sprintf("❌ *Gateway Error*\n%s\nTime: %s", detail, now.Format("2006-01-02 15:04:05"))
}
