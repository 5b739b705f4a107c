package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsclock/tsclock/render"
	"github.com/tsclock/tsclock/telemetry"
)

func TestGlobalRun(t *testing.T) {
	t.Parallel()

	ctx, g, dev := NewTestContext(t, `display { dwell_ms = 20 }`)
	assert.Equal(t, g, GetGlobal(ctx))
	require.NoError(t, g.Start(ctx))
	defer g.Stop()

	g.Clock.Connected()
	require.True(t, g.Clock.Inspect(func(_ telemetry.Snapshot, f render.Frame) {
		assert.Equal(t, render.FrameWaiting, f)
	}))
	assert.True(t, dev.Backlight())
	assert.True(t, strings.HasPrefix(dev.String(), "Connected..."), dev.String())

	topics := telemetry.DefaultTopics()
	require.True(t, g.Clock.Deliver(topics.Topic(telemetry.ChannelGameInfo), []byte(`{"game_id":"ETS2","game_version":1}`)))
	require.True(t, g.Clock.Deliver(topics.Topic(telemetry.ChannelGameTime), []byte(`{"value":3661}`)))
	require.Eventually(t, func() bool {
		return strings.HasPrefix(dev.String(), "Time       WED 13:01")
	}, time.Second, 5*time.Millisecond, dev.String())

	g.Stop()
	assert.False(t, g.Clock.Deliver("any", nil))
}

func TestGlobalStartBeforeInit(t *testing.T) {
	t.Parallel()

	g := NewGlobal(nil)
	assert.Error(t, g.Start(context.Background()))
}

func TestGetGlobalPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { GetGlobal(context.Background()) })
}
