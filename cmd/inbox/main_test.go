package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/tempinbox/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		MailDomain:         "example.com",
		MailServer:         "127.0.0.1",
		MailPort:           1,
		MailUsername:       "user",
		MailPassword:       "secret",
		MailFolder:         "INBOX",
		IMAPDialTimeout:    time.Second,
		IMAPCommandTimeout: time.Second,
		IMAPIdleTimeout:    time.Minute,
		PoolSize:           1,
		PoolAcquireTimeout: time.Second,
		InboxSize:          15,
		LogFile:            filepath.Join(dir, "history.log"),
		LogSize:            15,
		LogBackend:         "file",
		DatabasePath:       filepath.Join(dir, "history.db"),
		GeoEndpoint:        "http://127.0.0.1:1/json/",
		GeoTimeout:         time.Second,
		HTTPAddr:           "127.0.0.1:0",
	}
}

func TestRunClosesPoolWhenVisitLogFails(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.LogBackend = "sqlite"
	cfg.DatabasePath = filepath.Join(blocker, "sub", "history.db")

	var out syncBuffer
	err := run(context.Background(), cfg, slog.New(slog.NewTextHandler(&out, nil)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "visit log")
	assert.Contains(t, out.String(), "closing connection pool")
}

func TestRunReturnsListenError(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "no-port-here"

	var out syncBuffer
	err := run(context.Background(), cfg, slog.New(slog.NewTextHandler(&out, nil)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server failed")
	assert.Contains(t, out.String(), "closing connection pool")
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out syncBuffer
	err := run(ctx, cfg, slog.New(slog.NewTextHandler(&out, nil)))

	assert.NoError(t, err)
	assert.Contains(t, out.String(), "closing connection pool")
}
