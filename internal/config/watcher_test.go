package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnFileChange(t *testing.T) {
	path := writeTestConfig(t, "time_zone: UTC\nserver:\n  port: 1111\n")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("time_zone: UTC\nserver:\n  port: 2222\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 2222, cfg.Server.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := writeTestConfig(t, "time_zone: UTC\n")
	w := NewWatcher(path, func(*Config, error) {})
	require.NoError(t, w.Start(context.Background()))
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
