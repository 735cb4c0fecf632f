package store

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestDualWriteThenRead(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	d := NewDual(primary, nil, zap.NewNop())

	if err := d.SetDocument(ctx, "k", map[string]int{"n": 7}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := d.GetDocument(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got["n"] != 7 {
		t.Errorf("read back %v", got)
	}

	// The write must land on the authoritative tier, not just the cache.
	praw, _ := primary.GetDocument(ctx, "k")
	if praw == nil {
		t.Error("primary tier missed the write")
	}
}

func TestDualCountersUseSingleTier(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	d := NewDual(primary, nil, zap.NewNop())

	_ = d.IncrementCounter(ctx, UsageStudent)
	_ = d.IncrementCounter(ctx, UsageStudent)

	c, err := d.Counters(ctx)
	if err != nil {
		t.Fatalf("counters failed: %v", err)
	}
	if c.Student != 2 {
		t.Errorf("expected 2 student increments, got %+v", c)
	}
}
