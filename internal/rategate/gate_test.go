package rategate

import (
	"context"
	"testing"
	"time"
)

func TestGatePacesCalls(t *testing.T) {
	g := New(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := g.Wait(ctx); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond {
		t.Fatalf("expected pacing to serialize 3 calls over ~100ms, took %v", elapsed)
	}
}

func TestGateZeroIntervalDoesNotBlock(t *testing.T) {
	g := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := g.Wait(ctx); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Fatalf("expected zero-interval gate to be effectively unpaced")
	}
}

func TestGateRespectsContextCancellation(t *testing.T) {
	g := New(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("first Wait() should admit immediately: %v", err)
	}
	if err := g.Wait(ctx); err == nil {
		t.Fatalf("expected second Wait() to fail once context deadline passes")
	}
}
