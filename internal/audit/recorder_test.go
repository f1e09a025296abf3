package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Append(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestAsyncRecorderFansOutToAllSinks(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	rec := NewAsyncRecorder(zerolog.Nop(), RecorderConfig{BufferSize: 8}, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rec.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		rec.Record(context.Background(), Event{Action: "queue.enqueue", EntityType: "queue_entry", EntityID: "e1"})
	}
	cancel()
	<-done

	require.Equal(t, 3, first.len())
	require.Equal(t, 3, second.len())
	for _, ev := range first.events {
		require.NotEmpty(t, ev.ID)
		require.False(t, ev.TS.IsZero())
	}
}

func TestAsyncRecorderDropsWhenFull(t *testing.T) {
	sink := &captureSink{}
	rec := NewAsyncRecorder(zerolog.Nop(), RecorderConfig{BufferSize: 2}, sink)

	// The drain loop is not running, so only BufferSize events fit; the rest
	// are dropped rather than blocking the caller.
	for i := 0; i < 5; i++ {
		rec.Record(context.Background(), Event{Action: "pass.issue", EntityID: "p1"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		_ = rec.Run(ctx)
		close(done)
	}()
	<-done

	require.Equal(t, 2, sink.len())
}

func TestAsyncRecorderSinkFailureDoesNotStarveOthers(t *testing.T) {
	healthy := &captureSink{}
	rec := NewAsyncRecorder(zerolog.Nop(), RecorderConfig{BufferSize: 4}, failingSink{}, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rec.Run(ctx)
		close(done)
	}()

	rec.Record(context.Background(), Event{Action: "cargo.move", EntityID: "c1"})
	cancel()
	<-done

	require.Equal(t, 1, healthy.len())
}

type failingSink struct{}

func (failingSink) Append(ctx context.Context, ev *Event) error {
	return context.DeadlineExceeded
}
