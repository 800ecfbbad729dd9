package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func lastLogLine(t *testing.T, out string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("bad log line: %v (%q)", err, out)
	}
	return m
}

func TestRedact_Patterns(t *testing.T) {
	cases := map[string]string{
		"id=123e4567-e89b-12d3-a456-426614174000": "id=[REDACTED:id]",
		"contact=farmer@example.com":              "contact=[REDACTED:email]",
		"tel=13812345678":                          "tel=[REDACTED:phone]",
		"tel=+86 13812345678":                      "tel=[REDACTED:phone]",
		"page=2&pageSize=20":                       "page=2&pageSize=20",
		"":                                         "",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), UserID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/api/v1/products/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/products/123e4567-e89b-12d3-a456-426614174000?owner=farmer@example.com&tel=13812345678", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "k-123")
	req.Header.Set("X-Note", "call 13812345678")
	req.Header.Set(UserIDHeader, "anchor-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	m := lastLogLine(t, buf.String())
	if m["level"] != "info" || m["message"] != "http_request" {
		t.Fatalf("unexpected level/message: %v", m)
	}
	if m["path"] != "/api/v1/products/:id" {
		t.Fatalf("want route template, got %v", m["path"])
	}
	q, _ := m["query"].(string)
	if strings.Contains(q, "farmer@example.com") || strings.Contains(q, "13812345678") {
		t.Fatalf("query not redacted: %q", q)
	}
	h, _ := m["headers"].(map[string]any)
	if h["Authorization"] != "[REDACTED]" || h["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("sensitive headers not masked: %v", h)
	}
	if note, _ := h["X-Note"].(string); strings.Contains(note, "13812345678") {
		t.Fatalf("header value not redacted: %q", note)
	}
	if m["user_id"] != "anchor-9" || m["request_id"] == "" {
		t.Fatalf("scoped fields missing: %v", m)
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		path  string
		quiet []string
		h     gin.HandlerFunc
		level string
	}{
		{"warn on 4xx", "/x", nil, func(c *gin.Context) { c.Status(http.StatusNotFound) }, "warn"},
		{"error on 5xx", "/x", nil, func(c *gin.Context) { c.Status(http.StatusBadGateway) }, "error"},
		{"error on gin errors", "/x", nil, func(c *gin.Context) {
			_ = c.Error(errSentinel{})
			c.Status(http.StatusOK)
		}, "error"},
		{"quiet path", "/health", []string{"/health"}, func(c *gin.Context) { c.Status(http.StatusOK) }, "debug"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogger(t)
			r := gin.New()
			r.Use(RedactingLogger(RedactOptions{QuietPaths: tc.quiet}))
			r.GET(tc.path, tc.h)
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			m := lastLogLine(t, buf.String())
			if m["level"] != tc.level {
				t.Fatalf("want %s, got %v", tc.level, m["level"])
			}
		})
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }
