package docstore

import (
	"context"

	"github.com/yungbote/prism-backend/internal/platform/logger"
)

// New builds the store selected by cfg.Mode.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	switch cfg.Mode {
	case ModeGCS, ModeGCSEmulator:
		return NewGCSStore(ctx, log, cfg)
	default:
		return NewLocalStore(log, cfg.LocalDir)
	}
}
