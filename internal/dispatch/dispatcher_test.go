package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishshop/storefront-bot/internal/config"
	"github.com/fishshop/storefront-bot/internal/dispatch"
)

type item struct {
	key string
	seq int
}

func testConfig(shards, queueSize int) *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{Name: "test-app"},
		},
		Dispatcher: config.Dispatcher{Shards: shards, QueueSize: queueSize},
	}
}

func itemKey(i item) string { return i.key }

// recorder collects handled items per key.
type recorder struct {
	mu   sync.Mutex
	seen map[string][]int
}

func (r *recorder) handle(_ context.Context, i item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen[i.key] = append(r.seen[i.key], i.seq)

	return nil
}

func startDispatcher[T any](t *testing.T, d *dispatch.Dispatcher[T]) (cancel func(), done <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()

	return cancel, errCh
}

func TestDispatcher_PreservesOrderPerKey(t *testing.T) {
	rec := &recorder{seen: make(map[string][]int)}
	d, err := dispatch.New(t.Context(), testConfig(4, 8), itemKey, rec.handle)
	require.NoError(t, err)

	_, done := startDispatcher(t, d)

	const perKey = 50
	keys := []string{"alice", "bob", "carol", "dave", "erin"}
	for seq := range perKey {
		for _, k := range keys {
			require.NoError(t, d.Submit(t.Context(), item{key: k, seq: seq}))
		}
	}

	d.Close()
	require.NoError(t, <-done)

	for _, k := range keys {
		want := make([]int, perKey)
		for i := range want {
			want[i] = i
		}

		assert.Equal(t, want, rec.seen[k], "items of %s out of order", k)
	}
}

func TestDispatcher_SameKeyNeverOverlaps(t *testing.T) {
	var (
		mu      sync.Mutex
		running = map[string]bool{}
		overlap bool
	)

	handle := func(_ context.Context, i item) error {
		mu.Lock()
		if running[i.key] {
			overlap = true
		}
		running[i.key] = true
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		running[i.key] = false
		mu.Unlock()

		return nil
	}

	d, err := dispatch.New(t.Context(), testConfig(8, 4), itemKey, handle)
	require.NoError(t, err)

	_, done := startDispatcher(t, d)

	for seq := range 20 {
		for k := range 3 {
			require.NoError(t, d.Submit(t.Context(), item{key: fmt.Sprintf("user-%d", k), seq: seq}))
		}
	}

	d.Close()
	require.NoError(t, <-done)
	assert.False(t, overlap)
}

func TestDispatcher_DropsFailedItems(t *testing.T) {
	rec := &recorder{seen: make(map[string][]int)}
	handle := func(ctx context.Context, i item) error {
		if i.seq == 1 {
			return errors.New("remote unavailable")
		}

		if i.seq == 2 {
			panic("boom")
		}

		return rec.handle(ctx, i)
	}

	d, err := dispatch.New(t.Context(), testConfig(1, 4), itemKey, handle)
	require.NoError(t, err)

	_, done := startDispatcher(t, d)

	for seq := range 4 {
		require.NoError(t, d.Submit(t.Context(), item{key: "u", seq: seq}))
	}

	d.Close()
	require.NoError(t, <-done)
	assert.Equal(t, []int{0, 3}, rec.seen["u"])
}

func TestDispatcher_DrainsOnCancel(t *testing.T) {
	rec := &recorder{seen: make(map[string][]int)}
	release := make(chan struct{})
	handle := func(ctx context.Context, i item) error {
		<-release
		return rec.handle(ctx, i)
	}

	d, err := dispatch.New(t.Context(), testConfig(1, 8), itemKey, handle)
	require.NoError(t, err)

	cancel, done := startDispatcher(t, d)

	for seq := range 5 {
		require.NoError(t, d.Submit(t.Context(), item{key: "u", seq: seq}))
	}

	cancel()
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rec.seen["u"])
	assert.ErrorIs(t, d.Submit(t.Context(), item{key: "u"}), dispatch.ErrClosed)
}

func TestDispatcher_SubmitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	handle := func(context.Context, item) error {
		<-block
		return nil
	}

	d, err := dispatch.New(t.Context(), testConfig(1, 0), itemKey, handle)
	require.NoError(t, err)

	_, _ = startDispatcher(t, d)

	// The worker takes the first item and blocks, the unbuffered queue stays full.
	require.NoError(t, d.Submit(t.Context(), item{key: "u"}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err = d.Submit(ctx, item{key: "u", seq: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d, err := dispatch.New(t.Context(), testConfig(2, 1), itemKey, func(context.Context, item) error { return nil })
	require.NoError(t, err)

	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Submit(t.Context(), item{key: "u"}), dispatch.ErrClosed)
	assert.NoError(t, d.Run(t.Context()))
}
