package sentflags

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, store Store, key string) {
	t.Helper()
	ctx := context.Background()
	sent, err := store.IsSent(ctx, TRFEmail, key)
	if err != nil || sent {
		t.Fatalf("fresh key should not be sent: %v %v", sent, err)
	}
	if err := store.MarkSent(ctx, TRFEmail, key); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if sent, _ := store.IsSent(ctx, TRFEmail, key); !sent {
		t.Fatalf("expected sent after mark")
	}
	if sent, _ := store.IsSent(ctx, Reminder, key); sent {
		t.Fatalf("kinds must not share flags")
	}
	if err := store.Clear(ctx, TRFEmail, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if sent, _ := store.IsSent(ctx, TRFEmail, key); sent {
		t.Fatalf("expected cleared flag")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), TRFKey("u1", "s1"))
}

func TestFlagKeyFormat(t *testing.T) {
	if got := flagKey(TRFEmail, TRFKey("u1", "s1")); got != "trf_email_sent:u1:s1" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := flagKey(Reminder, "s9"); got != "reminder_sent:s9" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("integration tests disabled")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	exerciseStore(t, NewRedisStore(client, 0), TRFKey(uuid.NewString(), uuid.NewString()))
}
