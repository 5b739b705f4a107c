// Main mode of operation: telemetry from MQTT to LCD until signal.
package run

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/cmd/tsclock/subcmd"
	"github.com/tsclock/tsclock/state"
)

var Mod = subcmd.Mod{Name: "run", Usage: "subscribe to telemetry and drive display (default)", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	if err := g.Start(ctx); err != nil {
		g.Stop()
		return errors.Annotate(err, "start")
	}
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("tsclock running dwell=%v", g.Clock.Dwell())

	if sig := subcmd.WaitSignal(g.Alive); sig != nil {
		g.Log.Infof("signal=%v, stopping", sig)
	}
	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.Stop()
	g.Log.Infof("stopped")
	return nil
}
