package app

import (
	"github.com/yungbote/prism-backend/internal/data/db"
	"github.com/yungbote/prism-backend/internal/http"
	httpH "github.com/yungbote/prism-backend/internal/http/handlers"
	httpMW "github.com/yungbote/prism-backend/internal/http/middleware"
	"github.com/yungbote/prism-backend/internal/observability"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Case     *httpH.CaseHandler
	RFI      *httpH.RFIHandler
	Policy   *httpH.PolicyHandler
	Realtime *httpH.RealtimeHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	auth := httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey)
	if !auth.Enabled() {
		log.Warn("JWT_SECRET_KEY not set; API is open and RFIs are recorded without a reviewer")
	}
	return Middleware{Auth: auth}
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	database := db.DriverNone
	if d := cfg.DB.Driver; d != "" {
		database = d
	}
	return Handlers{
		Health: httpH.NewHealthHandler(httpH.Collaborators{
			Analysis: clients.Analysis != nil,
			Email:    clients.Email,
			Storage:  string(clients.Docs.Mode()),
			Redis:    clients.SSEBus != nil,
			Database: database,
		}),
		Case:     httpH.NewCaseHandler(log, services.Review),
		RFI:      httpH.NewRFIHandler(log, services.Review),
		Policy:   httpH.NewPolicyHandler(services.Review),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		AuthMiddleware:  mw.Auth,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		CaseHandler:     h.Case,
		RFIHandler:      h.RFI,
		PolicyHandler:   h.Policy,
		RealtimeHandler: h.Realtime,
		HealthHandler:   h.Health,
	})
}
