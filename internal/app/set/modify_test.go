package set

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"
)

func TestModifyConvergesWithMinimalCalls(t *testing.T) {
	store := newFakeStore()
	collection := newTestCollection(t, store)
	ctx := context.Background()
	if err := collection.AddAll(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("addall: %v", err)
	}
	store.calls = nil

	result, err := collection.Modify(ctx, func(members []string) []string {
		out := make([]string, 0, len(members)+1)
		for _, member := range members {
			if member != "a" {
				out = append(out, member)
			}
		}
		return append(out, "d")
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	members, err := collection.Members(ctx)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	sort.Strings(members)
	if strings.Join(members, ",") != "b,c,d" {
		t.Fatalf("expected converged set b,c,d, got %v", members)
	}

	var sadds, srems int
	for _, call := range store.calls {
		switch {
		case strings.HasPrefix(call, "sadd "):
			sadds++
		case strings.HasPrefix(call, "srem "):
			srems++
		}
	}
	if sadds != 1 || srems != 1 {
		t.Fatalf("expected exactly one add batch and one removal, got %v", store.calls)
	}

	sort.Strings(result.Original)
	if strings.Join(result.Original, ",") != "a,b,c" {
		t.Fatalf("expected original snapshot a,b,c, got %v", result.Original)
	}
	sort.Strings(result.Changed)
	if strings.Join(result.Changed, ",") != "b,c,d" {
		t.Fatalf("expected changed set b,c,d, got %v", result.Changed)
	}
}

func TestModifyNoOpIssuesNoWrites(t *testing.T) {
	store := newFakeStore()
	collection := newTestCollection(t, store)
	ctx := context.Background()
	if err := collection.AddAll(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("addall: %v", err)
	}
	store.calls = nil

	if _, err := collection.Modify(ctx, func(members []string) []string {
		return members
	}); err != nil {
		t.Fatalf("modify: %v", err)
	}
	for _, call := range store.calls {
		if strings.HasPrefix(call, "sadd ") || strings.HasPrefix(call, "srem ") {
			t.Fatalf("identity transform must not write, got %v", store.calls)
		}
	}
}

func TestModifyPropagatesWriteFailure(t *testing.T) {
	store := newFakeStore()
	collection := newTestCollection(t, store)
	ctx := context.Background()
	if err := collection.AddAll(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("addall: %v", err)
	}
	store.failOn = "srem"

	_, err := collection.Modify(ctx, func(members []string) []string {
		return []string{"b"}
	})
	if err == nil {
		t.Fatal("expected the removal failure to surface")
	}
}

func TestModifyRefreshesTTLOnce(t *testing.T) {
	store := newFakeStore()
	collection := newTestCollection(t, store, WithExpiry(60*time.Second))
	ctx := context.Background()
	if err := collection.Add(ctx, "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	store.calls = nil

	if _, err := collection.Modify(ctx, func(members []string) []string {
		return append(members, "b")
	}); err != nil {
		t.Fatalf("modify: %v", err)
	}
	var expires int
	for _, call := range store.calls {
		if strings.HasPrefix(call, "expire") {
			expires++
		}
	}
	if expires != 1 {
		t.Fatalf("expected exactly one ttl refresh, got %v", store.calls)
	}
}
