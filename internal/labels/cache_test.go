package labels

import (
	"context"
	"errors"
	"testing"
)

func TestCacheResolvesOnce(t *testing.T) {
	calls := 0
	cache := New(func(ctx context.Context, name string) (string, error) {
		calls++
		return "id-" + name, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id, err := cache.ID(ctx, "Rejected")
		if err != nil {
			t.Fatalf("ID() error = %v", err)
		}
		if id != "id-Rejected" {
			t.Fatalf("ID() = %q, want id-Rejected", id)
		}
	}
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}

	if _, err := cache.ID(ctx, "FollowUp"); err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("resolver called %d times after second name, want 2", calls)
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	calls := 0
	fail := true
	cache := New(func(ctx context.Context, name string) (string, error) {
		calls++
		if fail {
			return "", errors.New("remote unavailable")
		}
		return "id-" + name, nil
	})

	ctx := context.Background()
	if _, err := cache.ID(ctx, "Rejected"); err == nil {
		t.Fatal("ID() error = nil, want failure")
	}

	fail = false
	id, err := cache.ID(ctx, "Rejected")
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if id != "id-Rejected" {
		t.Fatalf("ID() = %q, want id-Rejected", id)
	}
	if calls != 2 {
		t.Errorf("resolver called %d times, want 2", calls)
	}
}
