package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/prism-backend/internal/http/handlers"
	httpMW "github.com/yungbote/prism-backend/internal/http/middleware"
	"github.com/yungbote/prism-backend/internal/observability"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

const serviceName = "prism"

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	CORSOrigins    []string
	Metrics        *observability.Metrics

	CaseHandler     *httpH.CaseHandler
	RFIHandler      *httpH.RFIHandler
	PolicyHandler   *httpH.PolicyHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Policies
		if cfg.PolicyHandler != nil {
			api.GET("/policies", cfg.PolicyHandler.ListPolicies)
			api.GET("/policies/:id", cfg.PolicyHandler.GetPolicy)
		}

		// Cases
		if cfg.CaseHandler != nil {
			api.GET("/cases", cfg.CaseHandler.ListCases)
			api.GET("/cases/counts", cfg.CaseHandler.Counts)
			api.POST("/cases", cfg.CaseHandler.RegisterCase)
			api.GET("/cases/:id", cfg.CaseHandler.GetCase)
			api.POST("/cases/:id/submit", cfg.CaseHandler.SubmitCase)
			api.POST("/cases/:id/verdicts", cfg.CaseHandler.DeliverVerdict)
			api.GET("/cases/:id/evidence", cfg.CaseHandler.Evidence)
			api.GET("/cases/:id/decision", cfg.CaseHandler.DownloadDecision)
		}

		// RFI
		if cfg.RFIHandler != nil {
			api.GET("/rfi/templates", cfg.RFIHandler.ListTemplates)
			api.POST("/cases/:id/rfi/template", cfg.RFIHandler.ApplyTemplate)
			api.PUT("/cases/:id/rfi/draft", cfg.RFIHandler.UpdateDraft)
			api.POST("/cases/:id/rfi/send", cfg.RFIHandler.Send)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
