package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(allowed []string) *gin.Engine {
	r := gin.New()
	r.Use(CORS(allowed))
	r.OPTIONS("/api/v1/discovery", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/discovery", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow bool
	}{
		{"default allows react dev server", nil, "http://localhost:3000", true},
		{"default allows vite dev server", nil, "http://127.0.0.1:5173", true},
		{"default blocks unknown origin", nil, "https://elsewhere.example", false},
		{"configured origins replace defaults", []string{"https://app.kindred.example"}, "http://localhost:3000", false},
		{"configured origin allowed", []string{"https://app.kindred.example"}, "https://app.kindred.example", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := preflight(corsRouter(tc.allowed), tc.origin)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.wantAllow {
				if got != tc.origin {
					t.Fatalf("origin %s not allowed: header=%q", tc.origin, got)
				}
				if rec.Code != http.StatusNoContent {
					t.Fatalf("preflight status: got=%d", rec.Code)
				}
			} else if got != "" {
				t.Fatalf("origin %s should be blocked, got header %q", tc.origin, got)
			}
		})
	}
}
