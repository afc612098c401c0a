package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.HealthAddr = "127.0.0.1:0"
	c.DatabaseDSN = "sqlite::memory:"
	c.BlobDir = t.TempDir()
	c.SecretKey = "test-secret"
	return c
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop within timeout after context cancel")
	}
	assert.Error(t, app.db.Ping(), "database is closed on shutdown")
}

func TestApp_StopsWhenServerFails(t *testing.T) {
	c := testConfig(t)
	c.HTTPAddr = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running after the HTTP server failed")
	}
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.BlobBackend = "tape"
	_, err := NewApp(context.Background(), c, logging.Nop{})
	assert.ErrorContains(t, err, "unknown blob backend")

	c = testConfig(t)
	c.DatabaseDSN = "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"
	_, err = NewApp(context.Background(), c, logging.Nop{})
	assert.ErrorContains(t, err, "db init error")
}
