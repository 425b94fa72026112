package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/prism-backend/internal/http/handlers"
	httpMW "github.com/yungbote/prism-backend/internal/http/middleware"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

func TestRouterHealthAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		AuthMiddleware: httpMW.NewAuthMiddleware(logger.Nop(), "top-secret"),
		HealthHandler:  httpH.NewHealthHandler(httpH.Collaborators{Storage: "local"}),
		RFIHandler:     httpH.NewRFIHandler(logger.Nop(), nil),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthcheck: code=%d body=%s", w.Code, w.Body.String())
	}

	// health stays public, the api group does not
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rfi/templates", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("api without token: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
}

func TestRouterMetricsOnlyWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: want=%d got=%d", http.StatusNotFound, w.Code)
	}
}
