package httpkit

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testJWTConfig struct{ secret string }

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthRequiredAndRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testJWTConfig{secret: "s3cret"}
	userID := uuid.New()

	r := gin.New()
	r.GET("/provider-only", AuthRequired(cfg), RequireRole(RoleProvider), func(c *gin.Context) {
		id := MustGetIdentity(c)
		OK(c, gin.H{"id": id.UserID().String()})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": userID.String(), "type": "access"}), http.StatusUnauthorized},
		{"refresh token", "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": userID.String(), "type": "refresh"}), http.StatusUnauthorized},
		{"client role", "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": userID.String(), "type": "access", "roles": []string{RoleClient}}), http.StatusForbidden},
		{"provider role", "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{
			"sub": userID.String(), "type": "access", "roles": []string{RoleProvider},
			"exp": time.Now().Add(time.Hour).Unix(),
		}), http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/provider-only", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/conflict", func(c *gin.Context) { HandleError(c, apperr.Conflict("already confirmed")) })
	r.GET("/boom", func(c *gin.Context) { HandleError(c, errors.New("pq: password=hunter2")) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"error":"internal server error","kind":"internal"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ping", func(c *gin.Context) {
		if _, ok := c.Get(ContextLoggerKey); !ok {
			t.Fatalf("expected request logger in gin context")
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Fatalf("expected request id in access log, got %q", buf.String())
	}
}
