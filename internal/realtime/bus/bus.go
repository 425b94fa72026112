package bus

import (
	"context"

	"github.com/yungbote/prism-backend/internal/realtime"
)

// Bus fans SSE messages out to every instance serving streams.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
