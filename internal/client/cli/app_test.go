package cli

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLoggedIn(t *testing.T) {
	assert.False(t, (&App{}).isLoggedIn())
	assert.False(t, (&App{api: &fakeClient{}}).isLoggedIn())
	assert.True(t, (&App{api: &fakeClient{loggedIn: true}}).isLoggedIn())
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	app := &App{}
	var buf bytes.Buffer

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&buf)

	app.setMode(ModeOnline)
	if app.Mode != ModeOnline {
		t.Fatalf("expected mode to be %q, got %q", ModeOnline, app.Mode)
	}
	if got := buf.String(); got == "" {
		t.Fatalf("expected log output on mode change, got empty")
	}

	buf.Reset()

	app.setMode(ModeOnline)
	if got := buf.String(); got != "" {
		t.Fatalf("expected no log output when mode doesn't change, got: %q", got)
	}

	app.setMode(ModeOffline)
	if app.Mode != ModeOffline {
		t.Fatalf("expected mode to be %q, got %q", ModeOffline, app.Mode)
	}
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	f := &fakeClient{pingErr: assert.AnError}
	app := &App{api: f, Mode: ModeOnline}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	app.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
	assert.Equal(t, ModeOffline, app.mode())
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(&config.Config{ServerEndpointAddr: "127.0.0.1:1", RequestTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, app.api)
	assert.False(t, app.isLoggedIn())
	require.NoError(t, app.api.Close())
}
