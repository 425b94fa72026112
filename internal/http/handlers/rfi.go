package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/http/response"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/services"
)

var errMissingDraft = errors.New("draft is required")

type RFIHandler struct {
	log     *logger.Logger
	reviews services.ReviewService
}

func NewRFIHandler(log *logger.Logger, reviews services.ReviewService) *RFIHandler {
	return &RFIHandler{log: log.With("handler", "RFIHandler"), reviews: reviews}
}

// GET /api/rfi/templates
func (h *RFIHandler) ListTemplates(c *gin.Context) {
	response.RespondOK(c, gin.H{"templates": h.reviews.Templates()})
}

// POST /api/cases/:id/rfi/template
func (h *RFIHandler) ApplyTemplate(c *gin.Context) {
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, badRequest("invalid_request", err))
		return
	}
	updated, err := h.reviews.ApplyTemplate(c.Param("id"), req.TemplateID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"case": updated, "rfi": updated.RFI})
}

// PUT /api/cases/:id/rfi/draft
func (h *RFIHandler) UpdateDraft(c *gin.Context) {
	var req struct {
		Draft *string `json:"draft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, badRequest("invalid_request", err))
		return
	}
	if req.Draft == nil {
		response.RespondErr(c, review.NewError(review.KindInvalidArgument, c.Param("id"), errMissingDraft))
		return
	}
	updated, err := h.reviews.UpdateDraft(c.Param("id"), *req.Draft)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"case": updated, "rfi": updated.RFI})
}

// POST /api/cases/:id/rfi/send
func (h *RFIHandler) Send(c *gin.Context) {
	updated, ack, err := h.reviews.SendRFI(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Warn("rfi send failed", "case_id", c.Param("id"), "error_kind", string(review.KindOf(err)), "error", err)
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": updated, "rfi": updated.RFI, "ack": ack})
}
