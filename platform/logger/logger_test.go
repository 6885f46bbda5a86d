package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithRequestIDTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf).WithRequestID("req-42")

	log.Info("first")
	log.HTTPRequest("GET", "/api/health", 200, 1, "127.0.0.1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"req-42"`) {
			t.Fatalf("expected request_id on %q", line)
		}
	}
}

func TestWithContextReadsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "req-7"), "user-9")

	NewWithWriter("production", &buf).WithContext(ctx).Info("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-7"`) || !strings.Contains(out, `"user_id":"user-9"`) {
		t.Fatalf("expected request and user ids, got %q", out)
	}
}
