package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Component: ComponentHTTP, Output: buf})
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelInfo)
	l.Info("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelInfo).WithComponent(ComponentLedger)
	l.Info("x")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=ledger") {
		t.Fatalf("expected a single ledger component, got %q", out)
	}
	if l.Component() != ComponentLedger {
		t.Fatalf("unexpected component %s", l.Component())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestContextMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, slog.LevelInfo)

	var got *Logger
	h := Middleware(base.With(FieldRequestID, "req-1"))(
		ComponentMiddleware(ComponentDashboard)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
				got.InfoContext(r.Context(), "inside")
			})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentDashboard {
		t.Fatalf("expected dashboard logger in context")
	}
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("expected request id in %q", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))
	r := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)

	sl.LogHTTPEnd(context.Background(), r, "req-2", 503, 12, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=503") {
		t.Fatalf("expected error-level completion, got %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	out := buf.String()
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, `error="disk full"`) {
		t.Fatalf("unexpected error line %q", out)
	}
}
