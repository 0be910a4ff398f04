package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/service"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func keyFor(ip string, window int64) string {
	return config.CacheKey.GenerateRateLimitKey(ip, window)
}

func limitedEngine(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(&memoryCounter{}, 2, time.Minute, keyFor, zerolog.Nop())
	fixed := time.Date(2026, 1, 1, 10, 0, 30, 0, time.UTC)
	rl.now = func() time.Time { return fixed }
	r := limitedEngine(rl)

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i, code := range want {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != code {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, code)
		}
		if code == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "31" {
			t.Errorf("Retry-After = %q, want 31", w.Header().Get("Retry-After"))
		}
	}

	// A new window starts over.
	fixed = fixed.Add(time.Minute)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("next window status = %d", w.Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rl := NewRateLimiter(&memoryCounter{err: errors.New("redis down")}, 1, time.Minute, keyFor, zerolog.Nop())
	r := limitedEngine(rl)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want pass-through", w.Code)
		}
	}
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("question ", 500)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64, SkipPrefixes: []string{"/files/"}}))
	r.GET("/json", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/files/a.zip", func(c *gin.Context) { c.String(http.StatusOK, body) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/json")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q, want br", w.Header().Get("Content-Encoding"))
	}
	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(plain) != body {
		t.Errorf("round trip mismatch: got %d bytes", len(plain))
	}

	if w := get("/small"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body altered: %q %q", w.Header().Get("Content-Encoding"), w.Body.String())
	}
	if w := get("/files/a.zip"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != body {
		t.Errorf("skipped prefix was compressed")
	}
}

func TestRequireOperatorJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		DownloadExpiry: time.Hour,
	}, nil)

	r := gin.New()
	r.GET("/me", RequireOperatorJWT(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetClaims(c).UserID})
	})

	session, err := auth.GenerateOperatorToken(7)
	if err != nil {
		t.Fatal(err)
	}
	download, _, err := auth.GenerateDownloadToken(7, storage.Ref{Bundle: "gen-1", Name: "a.zip"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"download token", "Bearer " + download, http.StatusForbidden},
		{"session", "bearer " + session, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := w.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
