package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/prism-backend/internal/platform/ctxutil"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

func signed(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func authRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), secret).RequireAuth())
	r.GET("/api/cases", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.Reviewer(c.Request.Context()))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	valid := signed(t, secret, jwt.RegisteredClaims{
		Subject:   "reviewer-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signed(t, secret, jwt.RegisteredClaims{
		Subject:   "reviewer-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	foreign := signed(t, "other-secret", jwt.RegisteredClaims{Subject: "reviewer-7"})
	noSubject := signed(t, secret, jwt.RegisteredClaims{})

	cases := []struct {
		name     string
		secret   string
		header   string
		query    string
		wantCode int
		wantBody string
	}{
		{name: "disabled", secret: "", wantCode: http.StatusOK, wantBody: ""},
		{name: "missing token", secret: secret, wantCode: http.StatusUnauthorized},
		{name: "bearer header", secret: secret, header: "Bearer " + valid, wantCode: http.StatusOK, wantBody: "reviewer-7"},
		{name: "query token", secret: secret, query: valid, wantCode: http.StatusOK, wantBody: "reviewer-7"},
		{name: "expired", secret: secret, header: "Bearer " + expired, wantCode: http.StatusUnauthorized},
		{name: "wrong key", secret: secret, header: "Bearer " + foreign, wantCode: http.StatusUnauthorized},
		{name: "no subject", secret: secret, header: "Bearer " + noSubject, wantCode: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/api/cases"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authRouter(tc.secret).ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("status: want=%d got=%d body=%s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if tc.wantCode == http.StatusOK && rec.Body.String() != tc.wantBody {
				t.Fatalf("reviewer: want=%q got=%q", tc.wantBody, rec.Body.String())
			}
		})
	}
}
