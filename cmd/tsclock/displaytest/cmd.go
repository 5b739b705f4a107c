// Writes test pattern to configured display, checks wiring and codepage.
package displaytest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/tsclock/tsclock/cmd/tsclock/subcmd"
	"github.com/tsclock/tsclock/render"
	"github.com/tsclock/tsclock/state"
)

var Mod = subcmd.Mod{Name: "display-test", Usage: "write test pattern to display, blink backlight", Main: Main}

const step = 2 * time.Second

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Stop()

	d := g.Hardware.Display
	width, rows := config.Display.Width, config.Display.Rows
	if err := d.SetBacklight(true); err != nil {
		return errors.Annotate(err, "backlight")
	}
	for i, line := range Pattern(width, rows) {
		if err := d.WriteAt(i, 0, line); err != nil {
			return errors.Annotatef(err, "row=%d", i)
		}
	}
	g.Log.Infof("display-test pattern:\n%s", d.State().String())
	time.Sleep(step)

	for i := 0; i < 3; i++ {
		if err := d.SetBacklight(false); err != nil {
			return errors.Annotate(err, "backlight")
		}
		time.Sleep(step / 4)
		if err := d.SetBacklight(true); err != nil {
			return errors.Annotate(err, "backlight")
		}
		time.Sleep(step / 4)
	}

	layout := render.DefaultLayout()
	layout.Width, layout.Rows = width, rows
	r, err := render.NewRenderer(d, g.Log, layout)
	if err != nil {
		return errors.Trace(err)
	}
	if err = r.ShowWaiting(); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(step)
	if err = r.ShowWelcome("ETS2", 1); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(step)
	return errors.Trace(r.ShowTelemetry())
}

// Pattern fills every cell: row number then printable ASCII shifted per row.
func Pattern(width, rows int) []string {
	const chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	lines := make([]string, rows)
	for r := 0; r < rows; r++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%d:", r+1)
		for i := 0; b.Len() < width; i++ {
			b.WriteByte(chars[(r*width+i)%len(chars)])
		}
		lines[r] = b.String()[:width]
	}
	return lines
}
