package app

import (
	"context"
	"fmt"

	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/modules/review/rfi"
	"github.com/yungbote/prism-backend/internal/observability"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/policies"
	"github.com/yungbote/prism-backend/internal/realtime"
	"github.com/yungbote/prism-backend/internal/services"
)

type Services struct {
	Policies  *policies.Catalog
	Lifecycle *lifecycle.Lifecycle
	Workflow  *rfi.Workflow
	Review    services.ReviewService
	Notifier  services.CaseNotifier
	Monitor   *services.SLAMonitor
	// Sync is nil without a database.
	Sync *services.CaseSync

	detach []func()
}

func wireServices(
	ctx context.Context,
	log *logger.Logger,
	cfg Config,
	repos Repos,
	clients Clients,
	hub *realtime.SSEHub,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := policies.Load(cfg.PolicyCatalogPath)
	if err != nil {
		return Services{}, fmt.Errorf("load policy catalog: %w", err)
	}
	log.Info("Policy catalog loaded", "path", cfg.PolicyCatalogPath, "policies", catalog.Len())

	lc := lifecycle.New(log, clients.Analysis, catalog, registry.New(), lifecycle.Config{
		AnalysisTimeout: cfg.AnalysisTimeout,
		DefaultSLAHours: cfg.DefaultSLAHours,
	})

	// Restore before attaching so restored cases are not written back.
	var caseSync *services.CaseSync
	if repos.Cases != nil {
		caseSync = services.NewCaseSync(log, repos.Cases)
		n, err := caseSync.Restore(ctx, lc)
		if err != nil {
			return Services{}, fmt.Errorf("restore cases: %w", err)
		}
		log.Info("Cases restored", "count", n)
		caseSync.Attach(lc)
	}

	workflow := rfi.NewWorkflow(log, lc, clients.Transport, cfg.RFIFallbackEmail)

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emitter = &services.RedisEmitter{Bus: clients.SSEBus, Log: log}
	}
	notifier := services.NewCaseNotifier(emitter)

	return Services{
		Policies:  catalog,
		Lifecycle: lc,
		Workflow:  workflow,
		Review:    services.NewReviewService(log, lc, workflow, clients.Docs, catalog),
		Notifier:  notifier,
		Monitor:   services.NewSLAMonitor(log, lc.Registry(), notifier, cfg.SLATick),
		Sync:      caseSync,
		detach: []func(){
			services.AttachNotifier(lc, notifier),
			services.AttachMetrics(lc, metrics),
		},
	}, nil
}

// Close detaches listeners and flushes pending case writes.
func (s Services) Close() {
	for _, fn := range s.detach {
		fn()
	}
	if s.Sync != nil {
		s.Sync.Close()
	}
}
