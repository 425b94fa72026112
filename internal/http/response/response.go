package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/platform/apierr"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr picks status and code from err: an *apierr.Error wins, then a
// review error kind, else 500.
func RespondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	kind := review.KindOf(err)
	if kind == "" {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.JSON(StatusForKind(kind), ErrorEnvelope{
		Error: APIError{
			Message:   err.Error(),
			Code:      strings.ToLower(string(kind)),
			Retryable: kind.Retryable(),
		},
	})
}

func StatusForKind(kind review.ErrorKind) int {
	switch kind {
	case review.KindCaseNotFound:
		return http.StatusNotFound
	case review.KindUnknownPolicy, review.KindUnknownTemplate, review.KindEmptyDraft, review.KindInvalidArgument:
		return http.StatusBadRequest
	case review.KindAlreadySent, review.KindRFIAlreadySent, review.KindInvalidState:
		return http.StatusConflict
	case review.KindAnalysisRejected:
		return http.StatusUnprocessableEntity
	case review.KindAnalysisUnavailable, review.KindRFISendFailed:
		return http.StatusBadGateway
	case review.KindAnalysisTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
