package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/prism-backend/internal/clients/analysis"
	"github.com/yungbote/prism-backend/internal/clients/rfimail"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/modules/review/rfi"
	"github.com/yungbote/prism-backend/internal/platform/docstore"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/platform/sendgrid"
	"github.com/yungbote/prism-backend/internal/realtime/bus"
)

type Clients struct {
	// Analysis is nil when no engine is configured; submissions then fail
	// with ANALYSIS_UNAVAILABLE.
	Analysis  lifecycle.AnalysisGateway
	Transport rfi.Transport
	Email     bool
	Docs      docstore.Store
	SSEBus    bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Analysis engine
	if strings.TrimSpace(cfg.AnalysisBaseURL) != "" {
		c, err := analysis.New(log, analysis.Options{
			BaseURL:    cfg.AnalysisBaseURL,
			APIKey:     cfg.AnalysisAPIKey,
			MaxRetries: cfg.AnalysisMaxRetries,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init analysis client: %w", err)
		}
		out.Analysis = c
	} else {
		log.Warn("ANALYSIS_BASE_URL not set; case submissions will report the engine unavailable")
	}

	// RFI delivery
	sgCfg := sendgrid.ConfigFromEnv()
	if strings.TrimSpace(sgCfg.APIKey) != "" {
		sg, err := sendgrid.New(log, sgCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		out.Transport = rfimail.NewEmailTransport(log, sg)
		out.Email = true
	} else {
		log.Warn("SENDGRID_API_KEY not set; requests for information are logged, not e-mailed")
		out.Transport = rfimail.NewLogTransport(log)
	}

	// Documents
	docs, err := docstore.New(ctx, log, cfg.Documents)
	if err != nil {
		return Clients{}, fmt.Errorf("init document store: %w", err)
	}
	out.Docs = docs

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := bus.NewRedisBus(log, bus.Config{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	}

	return out, nil
}

func (c Clients) Close() {
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}
