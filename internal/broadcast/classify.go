package broadcast

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mymmrac/telego/telegoapi"
)

type FailureKind string

const (
	FailureBlocked     FailureKind = "blocked"
	FailureUnreachable FailureKind = "unreachable"
	FailureOther       FailureKind = "other"
)

// Classify maps a delivery error to a diagnostic bucket. All buckets count
// as plain failures. Telegram API errors are judged by code first; anything
// else falls back to the message text.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.ErrorCode == http.StatusForbidden:
			return FailureBlocked
		case apiErr.ErrorCode == http.StatusBadRequest && unreachable(strings.ToLower(apiErr.Description)):
			return FailureUnreachable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "bot was blocked"),
		strings.Contains(msg, "user is deactivated"):
		return FailureBlocked
	case unreachable(msg):
		return FailureUnreachable
	default:
		return FailureOther
	}
}

func unreachable(msg string) bool {
	return strings.Contains(msg, "chat not found") ||
		strings.Contains(msg, "user not found") ||
		strings.Contains(msg, "peer_id_invalid")
}
