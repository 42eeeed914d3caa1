package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newOriginRouter(allowed []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OriginFilter(allowed))
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestOriginFilter(t *testing.T) {
	allowed := []string{"https://app.example.com"}

	tests := []struct {
		name     string
		origins  []string
		origin   string
		wantCode int
	}{
		{"allowed origin", allowed, "https://app.example.com", http.StatusOK},
		{"forbidden origin", allowed, "https://evil.example.com", http.StatusForbidden},
		{"no origin header passes", allowed, "", http.StatusOK},
		{"empty allow-list disables filter", nil, "https://anywhere.example.com", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newOriginRouter(tt.origins)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestOriginFilterSetsCORSHeaders(t *testing.T) {
	router := newOriginRouter([]string{"https://app.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the requesting origin", got)
	}
}
