// Package dispatch runs keyed work items on a fixed set of shards. Items with
// the same key always run on the same shard, one after another, in submission
// order. Items with different keys may run in parallel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/config"
)

var ErrClosed = errors.New("dispatcher is closed")

// HandlerFunc processes one item. Errors are logged and the item is dropped.
type HandlerFunc[T any] func(ctx context.Context, item T) error

type Dispatcher[T any] struct {
	key    func(T) string
	handle HandlerFunc[T]
	meters *meters

	mu     sync.RWMutex
	closed bool
	shards []chan T
}

func New[T any](ctx context.Context, cfg *config.Config, key func(T) string, handle HandlerFunc[T]) (*Dispatcher[T], error) {
	shards := max(cfg.Dispatcher.Shards, 1)
	queueSize := max(cfg.Dispatcher.QueueSize, 0)

	m, err := newMeters(ctx, cfg.Application)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher[T]{
		key:    key,
		handle: handle,
		meters: m,
		shards: make([]chan T, shards),
	}
	for i := range d.shards {
		d.shards[i] = make(chan T, queueSize)
	}

	return d, nil
}

// Run processes items until ctx is cancelled or Close is called. Items already
// queued are still processed before Run returns.
func (d *Dispatcher[T]) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		d.Close()
	}()

	// Queued items are drained even after cancellation.
	workCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, shard := range d.shards {
		g.Go(func() error {
			for item := range shard {
				d.meters.queued.Add(workCtx, -1)
				d.process(workCtx, i, item)
			}

			return nil
		})
	}

	slogctx.Info(ctx, "Dispatcher started", "shards", len(d.shards))
	err := g.Wait()
	slogctx.Info(ctx, "Dispatcher stopped")

	return err
}

// Submit queues an item on the shard of its key. It blocks while the shard queue is full.
func (d *Dispatcher[T]) Submit(ctx context.Context, item T) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.shards[d.shardOf(d.key(item))] <- item:
		d.meters.queued.Add(ctx, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting items. Workers exit once their queues are empty.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.closed = true
	for _, shard := range d.shards {
		close(shard)
	}
}

func (d *Dispatcher[T]) shardOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher[T]) process(ctx context.Context, shard int, item T) {
	key := d.key(item)
	ctx = slogctx.With(ctx,
		commoncfg.AttrRequestID, uuid.NewString(),
		"shard", shard,
	)

	ctx, span := d.meters.tracer.Start(ctx, "dispatch-event",
		trace.WithAttributes(attribute.Int("shard", shard), attribute.String("key", key)))
	defer span.End()

	start := time.Now()
	outcome := outcomeHandled

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			err := fmt.Errorf("handler panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slogctx.Error(ctx, "Dropping event after handler panic", "error", err, "stack", string(debug.Stack()))
		}

		d.meters.record(ctx, shard, outcome, time.Since(start))
	}()

	if err := d.handle(ctx, item); err != nil {
		outcome = outcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slogctx.Error(ctx, "Dropping event after handler failure", "error", err)
	}
}
