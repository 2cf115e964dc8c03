package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	ctx := context.Background()
	m := NewKeyedMutex()

	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.Acquire(ctx, "conversion:a:thumb")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			if err := m.Release(ctx, "conversion:a:thumb", token); err != nil {
				t.Errorf("Release: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("expected at most one holder, saw %d", peak)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	ctx := context.Background()
	m := NewKeyedMutex()

	a, err := m.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire(a): %v", err)
	}
	b, err := m.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire(b): %v", err)
	}

	if err := m.Release(ctx, "a", b); err == nil {
		t.Fatal("expected error releasing with foreign token")
	}
	if err := m.Release(ctx, "a", a); err != nil {
		t.Fatalf("Release(a): %v", err)
	}
	if err := m.Release(ctx, "b", b); err != nil {
		t.Fatalf("Release(b): %v", err)
	}
}

func TestKeyedMutexHonorsContext(t *testing.T) {
	m := NewKeyedMutex()
	if _, err := m.Acquire(context.Background(), "k"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, "k"); err == nil {
		t.Fatal("expected context error while key is held")
	}
}

func TestKeyedMutexDropsIdleSlots(t *testing.T) {
	ctx := context.Background()
	m := NewKeyedMutex()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("conversion:%d:thumb", i)
		token, err := m.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("Acquire(%s): %v", key, err)
		}
		if err := m.Release(ctx, key, token); err != nil {
			t.Fatalf("Release(%s): %v", key, err)
		}
	}

	held, err := m.Acquire(ctx, "busy")
	if err != nil {
		t.Fatalf("Acquire(busy): %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(waitCtx, "busy"); err == nil {
		t.Fatal("expected timeout while busy is held")
	}
	if got := len(m.slots); got != 1 {
		t.Fatalf("slots while busy is held = %d, want 1", got)
	}
	if err := m.Release(ctx, "busy", held); err != nil {
		t.Fatalf("Release(busy): %v", err)
	}

	if got := len(m.slots); got != 0 {
		t.Fatalf("idle slots = %d, want 0", got)
	}
}
