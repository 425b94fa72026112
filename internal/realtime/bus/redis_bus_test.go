package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/realtime"
)

func TestDecodeRejectsBadPayloads(t *testing.T) {
	if _, err := decode("{not json"); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if _, err := decode(`{"event":"case.updated"}`); err == nil {
		t.Fatalf("expected error for payload without channel")
	}
	msg, err := decode(`{"channel":"cases","event":"sla.tick","data":{"overdue":1}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Channel != realtime.ChannelAll || msg.Event != realtime.SSEEventSLATick {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without address")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBus(logger.Nop(), Config{Addr: addr, Channel: "prism-sse-test"})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan realtime.SSEMessage, 1)
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := realtime.SSEMessage{Channel: realtime.CaseChannel("case-001"), Event: realtime.SSEEventCaseUpdated}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Channel != want.Channel || m.Event != want.Event {
			t.Fatalf("forwarded: want=%+v got=%+v", want, m)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for forwarded message")
	}
}
