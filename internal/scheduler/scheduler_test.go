package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 5 * time.Minute, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2026, 8, 31, 10, 2, 30, 0, time.UTC)
	next := s.nextTick(now)
	want := time.Date(2026, 8, 31, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("nextTick = %v, want %v", next, want)
	}

	// Exactly on a boundary moves to the following bucket.
	next = s.nextTick(want)
	if !next.Equal(want.Add(5 * time.Minute)) {
		t.Fatalf("boundary nextTick = %v", next)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: 5 * time.Minute}, zerolog.Nop())
	now := time.Date(2026, 8, 31, 10, 2, 30, 0, time.UTC)
	if next := s.nextTick(now); !next.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unaligned nextTick = %v", next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	var ticks int32
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("Run should return the context error, got %v", err)
	}
	if atomic.LoadInt32(&ticks) == 0 {
		t.Fatal("expected at least one tick before cancellation")
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New with zero interval should panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
