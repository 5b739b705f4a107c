// Interactive console: type telemetry messages, see display.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/cmd/tsclock/subcmd"
	"github.com/tsclock/tsclock/helpers/cli"
	"github.com/tsclock/tsclock/render"
	"github.com/tsclock/tsclock/state"
	tele_config "github.com/tsclock/tsclock/tele/config"
	"github.com/tsclock/tsclock/telemetry"
)

const modName = "console"

const usage = `syntax:
- CHANNEL JSON   deliver payload, CHANNEL is game-info|game-time|distance|eta|rest-stop or exact topic
- connect        transport (re)connected
- backlight on|off
- sleep MS       wait, e.g. for welcome frame dwell
- show           print display
`

var Mod = subcmd.Mod{Name: modName, Usage: "type telemetry messages, display printed to stdout", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	synthConfig := *config
	synthConfig.Display.Driver = state.DisplayDriverMock
	synthConfig.Display.Codepage = ""
	synthConfig.Backlight.Source = state.BacklightSourceOn
	synthConfig.Mqtt.Transport = tele_config.TransportNone
	synthConfig.Metrics.Listen = ""
	g.MustInit(ctx, &synthConfig)
	if err := g.Start(ctx); err != nil {
		return errors.Annotate(err, "start")
	}
	defer g.Stop()

	topics, err := synthConfig.Mqtt.ResolveTopics()
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Print(usage)
	c := &console{g: g, topics: topics}
	return cli.MainLoop(modName, c.exec, c.complete)
}

type console struct {
	g      *state.Global
	topics telemetry.Topics
}

func (c *console) complete(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "connect"},
		{Text: "backlight"},
		{Text: "sleep"},
		{Text: "show"},
	}
	for _, ch := range telemetry.Channels() {
		suggests = append(suggests, prompt.Suggest{Text: ch.String(), Description: c.topics.Topic(ch)})
	}
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func (c *console) exec(line string) {
	if err := c.do(line); err != nil {
		c.g.Log.Error(errors.ErrorStack(err))
		return
	}
	fmt.Println(c.show())
}

func (c *console) do(line string) error {
	cmd, arg := splitWord(strings.TrimSpace(line))
	switch cmd {
	case "":
		return nil
	case "show":
	case "connect":
		c.g.Clock.Connected()
	case "backlight":
		switch arg {
		case "on", "1":
			c.g.Clock.SetBacklight(true)
		case "off", "0":
			c.g.Clock.SetBacklight(false)
		default:
			return errors.NotValidf("backlight=%s", arg)
		}
	case "sleep":
		var ms int
		if _, err := fmt.Sscan(arg, &ms); err != nil {
			return errors.Annotate(err, "sleep")
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	default:
		topic := cmd
		if ch, err := telemetry.ParseChannel(cmd); err == nil {
			topic = c.topics.Topic(ch)
		}
		if !c.g.Clock.Deliver(topic, []byte(arg)) {
			return errors.Errorf("clock stopped")
		}
	}
	return nil
}

// show waits until clock handled previous commands.
func (c *console) show() string {
	var frame render.Frame
	var snap telemetry.Snapshot
	c.g.Clock.Inspect(func(s telemetry.Snapshot, f render.Frame) { snap, frame = s, f })
	d := c.g.Hardware.Display
	backlight := "off"
	if d.Backlight() {
		backlight = "on"
	}
	width := c.g.Config.Display.Width
	border := "+" + strings.Repeat("-", width) + "+"
	var b strings.Builder
	fmt.Fprintf(&b, "frame=%s backlight=%s %s\n%s\n", frame, backlight, snap.String(), border)
	for _, line := range strings.Split(d.State().String(), "\n") {
		fmt.Fprintf(&b, "|%s|\n", render.PadRight(line, width))
	}
	b.WriteString(border)
	return b.String()
}

func splitWord(s string) (string, string) {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
