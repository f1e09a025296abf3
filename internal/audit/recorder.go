package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RecorderConfig configures the async recorder.
type RecorderConfig struct {
	// BufferSize bounds the in-flight event queue. When the buffer is full,
	// Record drops the event and logs a warning; a state change is never
	// blocked or rolled back by audit delivery.
	BufferSize int

	// DeliverTimeout is the per-event deadline for delivering to all sinks.
	DeliverTimeout time.Duration
}

// AsyncRecorder is a bounded-queue, background-drain Recorder. Events are
// fanned out to every configured sink; a failing sink is logged and skipped so
// one slow target cannot starve the others.
type AsyncRecorder struct {
	sinks []Sink
	ch    chan Event
	cfg   RecorderConfig
	log   zerolog.Logger
}

// NewAsyncRecorder constructs a recorder. If cfg fields are zero, sensible
// defaults are used. Call Run to start the drain loop.
func NewAsyncRecorder(log zerolog.Logger, cfg RecorderConfig, sinks ...Sink) *AsyncRecorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 10 * time.Second
	}
	return &AsyncRecorder{
		sinks: sinks,
		ch:    make(chan Event, cfg.BufferSize),
		cfg:   cfg,
		log:   log.With().Str("component", "audit.recorder").Logger(),
	}
}

// Record enqueues the event without blocking. The ctx argument is accepted for
// interface symmetry; delivery happens on the drain goroutine with its own
// deadline.
func (r *AsyncRecorder) Record(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = NewUUID()
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case r.ch <- ev:
	default:
		r.log.Warn().Str("action", ev.Action).Str("entityId", ev.EntityID).Msg("audit buffer full, dropping event")
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is still
// buffered and returns ctx.Err(). Safe to run in a goroutine.
func (r *AsyncRecorder) Run(ctx context.Context) error {
	r.log.Info().Int("buffer", r.cfg.BufferSize).Int("sinks", len(r.sinks)).Msg("starting")
	defer r.log.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return ctx.Err()
		case ev := <-r.ch:
			r.deliver(ev)
		}
	}
}

func (r *AsyncRecorder) flush() {
	for {
		select {
		case ev := <-r.ch:
			r.deliver(ev)
		default:
			return
		}
	}
}

func (r *AsyncRecorder) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.DeliverTimeout)
	defer cancel()
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, &ev); err != nil {
			r.log.Warn().Err(err).Str("eventId", ev.ID).Str("action", ev.Action).Msg("sink append failed")
		}
	}
}
