package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mojiscan/internal/logger"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		config     CORSConfig
		origin     string
		method     string
		wantOrigin string
		wantStatus int
		wantCreds  string
	}{
		{name: "allow all", config: CORSConfig{AllowAllOrigins: true}, origin: "http://a.test", method: http.MethodGet, wantOrigin: "*", wantStatus: http.StatusOK, wantCreds: "false"},
		{name: "listed origin", config: CORSConfig{AllowedOrigins: []string{"http://a.test"}}, origin: "http://A.test", method: http.MethodGet, wantOrigin: "http://A.test", wantStatus: http.StatusOK, wantCreds: "true"},
		{name: "unlisted origin", config: CORSConfig{AllowedOrigins: []string{"http://a.test"}}, origin: "http://b.test", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight", config: CORSConfig{AllowAllOrigins: true}, origin: "http://a.test", method: http.MethodOptions, wantOrigin: "*", wantStatus: http.StatusNoContent, wantCreds: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.config))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected allow-origin %q, got %q", tt.wantOrigin, got)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("expected allow-credentials %q, got %q", tt.wantCreds, got)
			}
		})
	}
}

func TestLoggerMiddlewareRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(LoggerMiddleware(nil))
	r.GET("/x", func(c *gin.Context) {
		if got := GetLogger(c).Data[logger.FieldRequestID]; got == nil || got == "" {
			t.Errorf("expected request logger to carry a request id, got %v", got)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("expected caller request id to be echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}
