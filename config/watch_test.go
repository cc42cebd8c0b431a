package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/config"
	"go.uber.org/zap/zaptest"
)

func TestWatchFile_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "policy.yaml", "id: v1\n")

	var reloads, failures atomic.Int32
	reload := func(p string) error {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if string(data) == "broken\n" {
			failures.Add(1)
			return errors.New("broken document")
		}
		reloads.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- config.WatchFile(ctx, path, zaptest.NewLogger(t), reload) }()

	// The watch is registered asynchronously; keep writing until it is seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("id: v2\n"), 0o644)
		return reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("broken\n"), 0o644)
		return failures.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchFile_SurvivesRenameSaves(t *testing.T) {
	// GIVEN: a watched file that editors replace by renaming a temp file over it
	// WHEN: several such saves happen in a row
	// THEN: every saved version is reloaded, not just the first

	path := writeFile(t, "policy.yaml", "id: v1\n")
	dir := filepath.Dir(path)

	var latest atomic.Value
	latest.Store("")
	reload := func(p string) error {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		latest.Store(string(data))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = config.WatchFile(ctx, path, zaptest.NewLogger(t), reload) }()

	save := func(content string) {
		tmp := filepath.Join(dir, ".policy.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
		require.NoError(t, os.Rename(tmp, path))
	}

	for _, version := range []string{"id: v2\n", "id: v3\n", "id: v4\n"} {
		require.Eventually(t, func() bool {
			save(version)
			return latest.Load() == version
		}, 5*time.Second, 50*time.Millisecond, "version %q not reloaded", version)
	}
}

func TestWatchFile_MissingPath(t *testing.T) {
	err := config.WatchFile(context.Background(), "/does/not/exist.yaml", nil, func(string) error { return nil })
	assert.Error(t, err)
}
