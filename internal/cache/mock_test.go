package cache

import (
	"context"
	"testing"
	"time"
)

func TestMockProcessedMarkers(t *testing.T) {
	ctx := context.Background()
	c := NewMockRedisClient("test:")

	if ok, _ := c.IsProcessed(ctx, "abc"); ok {
		t.Fatal("fresh cache reports abc processed")
	}
	_ = c.MarkProcessed(ctx, "abc", time.Hour)
	if ok, _ := c.IsProcessed(ctx, "abc"); !ok {
		t.Fatal("abc not processed after MarkProcessed")
	}

	_ = c.SetJSON(ctx, "sources:top:10", []string{"x"}, 0)
	_ = c.ClearProcessed(ctx)
	if ok, _ := c.IsProcessed(ctx, "abc"); ok {
		t.Error("ClearProcessed left the marker")
	}
	var got []string
	if ok, _ := c.GetJSON(ctx, "sources:top:10", &got); !ok {
		t.Error("ClearProcessed removed a non-feed key")
	}
}

func TestMockExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMockRedisClient("")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.SetJSON(ctx, "k", 42, time.Minute)
	var v int
	if ok, err := c.GetJSON(ctx, "k", &v); !ok || err != nil || v != 42 {
		t.Fatalf("GetJSON = %v, %v, %d", ok, err, v)
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.GetJSON(ctx, "k", &v); ok {
		t.Error("expired key still returned")
	}
}
