package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:        "dev",
		Database:   config.Database{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "students.db")},
		HTTPServer: config.HTTPServer{Addr: "127.0.0.1:0"},
		Session:    config.Session{Backend: "memory", CookieName: "sid", TTL: time.Hour},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_SessionStoreFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = "file"

	err := run(cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialise session store")
}

func TestRun_ListenFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPServer.Addr = "127.0.0.1:99999"

	err := run(cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve")
}

func TestRun_DatabaseFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	err := run(cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialise storage")
}
