package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/prism-backend/internal/platform/ctxutil"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{Log: log.With("handler", "RealtimeHandler"), Hub: hub}
}

// GET /api/sse/stream?case_id=...
// Without case_id the client follows every case.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	reviewerID := ctxutil.Reviewer(c.Request.Context())
	channel := realtime.ChannelAll
	if caseID := strings.TrimSpace(c.Query("case_id")); caseID != "" {
		channel = realtime.CaseChannel(caseID)
	}

	client := h.Hub.NewSSEClient(reviewerID)
	client.Logger = h.Log.With("sse_client_id", client.ID.String(), "reviewer_id", reviewerID)
	h.Hub.AddChannel(client, channel)
	client.Logger.Info("SSE stream open", "channel", channel)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	client.Logger.Debug("SSE stream closed", "channel", channel)
}
