package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestWithLogger_RoundTrip(t *testing.T) {
	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("expected the stored logger back")
	}
}

func TestFromContext_NopFallback(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("must never return nil")
	}
	got.Info("discarded")

	ctx := WithLogger(context.Background(), nil)
	if FromContext(ctx) == nil {
		t.Error("nil stored logger must fall back to nop")
	}
}
