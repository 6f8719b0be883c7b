package push

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ================================================
// LOG PUSH SERVICE (development / no provider configured)
// ================================================

// LogPushService writes notifications to the log instead of a provider
type LogPushService struct {
	now func() time.Time
}

func NewLogPushService() *LogPushService {
	return &LogPushService{now: time.Now}
}

// SendPush logs the notification and returns a synthetic message id
func (s *LogPushService) SendPush(ctx context.Context, recipient, title, body string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if recipient == "" {
		return "", fmt.Errorf("push: empty recipient")
	}

	log.Info().
		Str("recipient", recipient).
		Str("title", title).
		Str("body", body).
		Interface("data", data).
		Msg("[LOG] push notification")

	return fmt.Sprintf("log-push-%d", s.now().UnixNano()), nil
}
