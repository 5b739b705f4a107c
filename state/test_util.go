package state

import (
	"context"
	"testing"

	"github.com/tsclock/tsclock/hardware/text_display"
	"github.com/tsclock/tsclock/log2"
)

const testConfigBase = `
display { driver = "mock" }
backlight { source = "on" }
mqtt { transport = "none" }
`

// NewTestContext reads base config plus confString, display is MockDevicer.
func NewTestContext(t testing.TB, confString string) (context.Context, *Global, *text_display.MockDevicer) {
	fs := NewMockFullReader(map[string]string{
		"test-base":   testConfigBase,
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	g := NewGlobal(log)
	ctx := ContextWithGlobal(context.Background(), g)
	config := MustReadConfig(log, fs, "test-base", "test-inline")
	dev := text_display.NewMockDevicer(uint32(config.Display.Rows), uint32(config.Display.Width))
	g.Hardware.Device = dev
	g.MustInit(ctx, config)
	return ctx, g, dev
}
