package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/prism-backend/internal/platform/logger"
)

type SSEClient struct {
	ID uuid.UUID
	// ReviewerID is empty when auth is disabled.
	ReviewerID string
	Channels   map[string]bool
	Outbound   chan SSEMessage
	done       chan struct{}
	Logger     *logger.Logger
}
