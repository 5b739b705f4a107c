package subcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/state"
)

func TestParse(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, *state.Config) error { return nil }
	mods := []Mod{{Name: "run", Main: noop}, {Name: "console", Main: noop}}

	m, err := Parse("console", mods)
	require.NoError(t, err)
	assert.Equal(t, "console", m.Name)

	_, err = Parse("", mods)
	assert.Error(t, err)
	_, err = Parse("reboot", mods)
	assert.EqualError(t, err, "unknown command='reboot'")
}

func TestWaitSignalAlive(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	a.Stop()
	assert.Nil(t, WaitSignal(a))
}
