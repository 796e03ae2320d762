package context

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ricesearch/relevance/internal/pkg/logger"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID(empty) = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "abc123")
	if got := GetRequestID(ctx); got != "abc123" {
		t.Errorf("GetRequestID() = %q, want abc123", got)
	}
}

func TestRequestID_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "text")

	log.WithContext(WithRequestID(context.Background(), "req-7")).Info("hello")

	if !strings.Contains(buf.String(), "request_id=req-7") {
		t.Errorf("log output %q missing request_id", buf.String())
	}
}
