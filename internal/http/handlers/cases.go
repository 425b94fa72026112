package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/prism-backend/internal/clients/analysis"
	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/http/response"
	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/platform/apierr"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/services"
)

const maxUploadBytes = 32 << 20

type CaseHandler struct {
	log     *logger.Logger
	reviews services.ReviewService
}

func NewCaseHandler(log *logger.Logger, reviews services.ReviewService) *CaseHandler {
	return &CaseHandler{log: log.With("handler", "CaseHandler"), reviews: reviews}
}

// GET /api/cases
func (h *CaseHandler) ListCases(c *gin.Context) {
	q, err := registry.ParseQuery(c.Query("filter"), c.Query("sort"), c.Query("dir"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	rows := h.reviews.ListCases(q)
	response.RespondOK(c, gin.H{"cases": rows, "total": len(rows)})
}

// GET /api/cases/counts
func (h *CaseHandler) Counts(c *gin.Context) {
	response.RespondOK(c, gin.H{"counts": h.reviews.Counts()})
}

// POST /api/cases
func (h *CaseHandler) RegisterCase(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}

	in := services.RegisterCaseInput{
		PatientName:   strings.TrimSpace(c.PostForm("patient_name")),
		PolicyID:      strings.TrimSpace(c.PostForm("policy_id")),
		ProviderID:    strings.TrimSpace(c.PostForm("provider_id")),
		ProviderEmail: strings.TrimSpace(c.PostForm("provider_email")),
	}
	if raw := strings.TrimSpace(c.PostForm("sla_hours")); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours <= 0 {
			response.RespondErr(c, review.NewError(review.KindInvalidArgument, "", fmt.Errorf("sla_hours must be a positive number, got %q", raw)))
			return
		}
		in.SLAHours = hours
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		response.RespondErr(c, review.NewError(review.KindInvalidArgument, "", errors.New("file is required")))
		return
	case err != nil:
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	case fh.Size == 0:
		response.RespondErr(c, review.NewError(review.KindInvalidArgument, "", fmt.Errorf("file %q is empty", fh.Filename)))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	in.FileName = fh.Filename
	in.Document = f

	created, err := h.reviews.RegisterCase(c.Request.Context(), in)
	if err != nil {
		h.log.Warn("register case failed", "policy_id", in.PolicyID, "error", err)
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"case": created})
}

// GET /api/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	detail, err := h.reviews.GetCase(c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/cases/:id/submit
func (h *CaseHandler) SubmitCase(c *gin.Context) {
	var req struct {
		PolicyID string `json:"policy_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.RespondErr(c, badRequest("invalid_request", err))
			return
		}
	}
	updated, err := h.reviews.SubmitCase(c.Request.Context(), c.Param("id"), req.PolicyID)
	if err != nil {
		h.log.Warn("submit case failed", "case_id", c.Param("id"), "error_kind", string(review.KindOf(err)), "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"case": updated})
}

// POST /api/cases/:id/verdicts
func (h *CaseHandler) DeliverVerdict(c *gin.Context) {
	var req struct {
		Attempt int             `json:"attempt"`
		Verdict json.RawMessage `json:"verdict"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, badRequest("invalid_request", err))
		return
	}
	if req.Attempt <= 0 || len(req.Verdict) == 0 {
		response.RespondErr(c, review.NewError(review.KindInvalidArgument, c.Param("id"), errors.New("attempt and verdict are required")))
		return
	}
	in, err := analysis.DecodeVerdict(req.Verdict)
	if err != nil {
		response.RespondErr(c, review.NewError(review.KindAnalysisRejected, c.Param("id"), err))
		return
	}
	updated, err := h.reviews.DeliverVerdict(c.Param("id"), req.Attempt, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"case": updated})
}

// GET /api/cases/:id/evidence
func (h *CaseHandler) Evidence(c *gin.Context) {
	target, err := h.reviews.Evidence(c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence": target})
}

// GET /api/cases/:id/decision
func (h *CaseHandler) DownloadDecision(c *gin.Context) {
	out, err := h.reviews.ExportDecision(c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Data(http.StatusOK, "application/fhir+json", out.Body)
}

func badRequest(code string, err error) error {
	return apierr.New(http.StatusBadRequest, code, err)
}
