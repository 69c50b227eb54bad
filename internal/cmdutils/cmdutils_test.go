package cmdutils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/fishshop/storefront-bot/internal/config"
	"github.com/fishshop/storefront-bot/internal/dbtest/valkeytest"
)

func passThrough(ctx context.Context, fn BusinessFunc, cfg *config.Config) error {
	return fn(ctx, cfg)
}

func TestCobraCommand(t *testing.T) {
	t.Run("creates command with correct properties", func(t *testing.T) {
		cmd := CobraCommand("bot", "short desc", "long description", "v1.0.0", passThrough,
			func(context.Context, *config.Config) error { return nil })

		assert.Equal(t, "bot", cmd.Use)
		assert.Equal(t, "short desc", cmd.Short)
		assert.Equal(t, "long description", cmd.Long)
		assert.NotNil(t, cmd.RunE)
	})

	t.Run("RunE returns error when config loading fails", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())

		called := false
		cmd := CobraCommand("bot", "short", "long", "v1.0.0", passThrough,
			func(context.Context, *config.Config) error {
				called = true
				return nil
			})
		cmd.SetArgs([]string{})

		// No config file in any search path.
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading config")
		assert.False(t, called)
	})
}

func TestStatusListener(t *testing.T) {
	tests := []struct {
		name  string
		state health.State
	}{
		{
			name:  "empty state",
			state: health.State{Status: "up", CheckState: map[string]health.CheckState{}},
		},
		{
			name: "failing check",
			state: health.State{
				Status: "down",
				CheckState: map[string]health.CheckState{
					"valkey": {Status: "down", Result: errors.New("connection refused")},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				statusListener(t.Context(), tt.state)
			})
		})
	}
}

func TestStartStatusServer(t *testing.T) {
	t.Run("returns error when valkey options cannot be loaded", func(t *testing.T) {
		cfg := &config.Config{
			ValKey: config.ValKey{
				Host: commoncfg.SourceRef{Source: "invalid-source", Value: "localhost"},
			},
		}
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		err := startStatusServer(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "making valkey client options from config")
	})
}

func TestValkeyPinger(t *testing.T) {
	t.Run("reuses one client across checks", func(t *testing.T) {
		_, srv := valkeytest.StartInMemory(t)

		pinger := newValkeyPinger(valkey.ClientOption{InitAddress: []string{srv.Addr()}, DisableCache: true})
		defer pinger.Close()

		require.NoError(t, pinger.Check(t.Context()))
		first := pinger.client

		require.NoError(t, pinger.Check(t.Context()))
		assert.Same(t, first, pinger.client)
	})

	t.Run("fails while valkey is unreachable", func(t *testing.T) {
		pinger := newValkeyPinger(valkey.ClientOption{InitAddress: []string{"127.0.0.1:1"}, DisableCache: true})
		defer pinger.Close()

		require.Error(t, pinger.Check(t.Context()))
		assert.Nil(t, pinger.client)
		require.Error(t, pinger.Check(t.Context()))
	})

	t.Run("close releases the client", func(t *testing.T) {
		_, srv := valkeytest.StartInMemory(t)

		pinger := newValkeyPinger(valkey.ClientOption{InitAddress: []string{srv.Addr()}, DisableCache: true})
		require.NoError(t, pinger.Check(t.Context()))

		pinger.Close()
		assert.Nil(t, pinger.client)
		pinger.Close()
	})
}

func ExampleCobraCommand() {
	cmd := CobraCommand(
		"example",
		"Example command",
		"This is an example of how to use CobraCommand",
		"v1.0.0",
		passThrough,
		func(context.Context, *config.Config) error {
			fmt.Println("Running business logic")
			return nil
		},
	)

	fmt.Printf("Command use: %s\n", cmd.Use)
	// Output: Command use: example
}
