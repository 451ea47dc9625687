package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute)

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	s.Set(ctx, "k", []byte("payload"))
	got, ok := s.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got.([]byte)) != "payload" {
		t.Fatalf("got %q", got)
	}

	s.Delete(ctx, "k")
	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewStore(10 * time.Millisecond)

	s.Set(ctx, "k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute)

	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		got, err := s.GetOrLoad(ctx, "k", loader)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if got != "loaded" {
			t.Fatalf("got %v", got)
		}
	}
	if n := loads.Load(); n != 1 {
		t.Fatalf("loader ran %d times, want 1", n)
	}
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute)

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.GetOrLoad(ctx, "k", loader); err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("loader ran %d times, want 1", n)
	}
}
