package console

import (
	"strings"
	"testing"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsclock/tsclock/state"
	"github.com/tsclock/tsclock/telemetry"
)

func TestSplitWord(t *testing.T) {
	t.Parallel()

	cases := []struct{ input, cmd, arg string }{
		{"", "", ""},
		{"show", "show", ""},
		{`eta {"value":60}`, "eta", `{"value":60}`},
		{"backlight \t off", "backlight", "off"},
	}
	for _, c := range cases {
		cmd, arg := splitWord(c.input)
		assert.Equal(t, c.cmd, cmd, c.input)
		assert.Equal(t, c.arg, arg, c.input)
	}
}

func TestConsole(t *testing.T) {
	t.Parallel()

	ctx, g, _ := state.NewTestContext(t, `display { dwell_ms = 10 }`)
	require.NoError(t, g.Start(ctx))
	defer g.Stop()
	c := &console{g: g, topics: telemetry.DefaultTopics()}

	require.NoError(t, c.do("connect"))
	assert.Contains(t, c.show(), "|Connected...        |")

	require.NoError(t, c.do(`game-info {"game_id":"ETS2","game_version":5}`))
	require.NoError(t, c.do(`telemetry/channel/time {"value":90}`))
	require.NoError(t, c.do("sleep 50"))
	require.Eventually(t, func() bool {
		return strings.Contains(c.show(), "|Time       MON 01:30|")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.do("backlight off"))
	assert.Contains(t, c.show(), "backlight=off")
	assert.Error(t, c.do("backlight dim"))
	assert.Error(t, c.do("sleep long"))
	assert.Contains(t, c.show(), "frame=telemetry")

	assert.NotEmpty(t, c.complete(prompt.Document{}))
}
