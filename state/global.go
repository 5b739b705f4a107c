// Package state wires configured components of running device.
package state

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/clock"
	"github.com/tsclock/tsclock/hardware/input"
	"github.com/tsclock/tsclock/hardware/text_display"
	"github.com/tsclock/tsclock/helpers"
	"github.com/tsclock/tsclock/log2"
	"github.com/tsclock/tsclock/render"
	"github.com/tsclock/tsclock/tele"
	"github.com/tsclock/tsclock/telemetry"
)

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Log      *log2.Log
	Registry *prometheus.Registry
	Stat     *clock.Stat
	Clock    *clock.Clock
	Tele     tele.Transporter
	Hardware struct {
		Display   *text_display.TextDisplay
		Device    text_display.Devicer
		Backlight *input.Watcher
	}

	lk      sync.Mutex
	closers []io.Closer
}

type contextKey string

const ContextKey contextKey = "run/state-global"

func NewGlobal(log *log2.Log) *Global {
	if log == nil {
		log = log2.NewStderr(log2.LInfo)
	}
	return &Global{
		Alive:    alive.NewAlive(),
		Log:      log,
		Registry: prometheus.NewRegistry(),
	}
}

func ContextWithGlobal(ctx context.Context, g *Global) context.Context {
	return context.WithValue(ctx, ContextKey, g)
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// Init builds display and clock. If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Debugf("config: display=%s %dx%d backlight=%s mqtt=%s transport=%s",
		cfg.Display.Driver, cfg.Display.Width, cfg.Display.Rows, cfg.Backlight.Source,
		cfg.Mqtt.Broker, cfg.Mqtt.Transport)

	var err error
	if g.Stat == nil {
		if g.Stat, err = clock.NewStat(g.Registry); err != nil {
			return errors.Annotate(err, "stat")
		}
	}
	if err = g.initDisplay(); err != nil {
		return errors.Annotate(err, "display init")
	}

	topics, err := cfg.Mqtt.ResolveTopics()
	if err != nil {
		return errors.Trace(err)
	}
	router, err := telemetry.NewRouter(topics)
	if err != nil {
		return errors.Trace(err)
	}
	layout := render.DefaultLayout()
	layout.Width, layout.Rows = cfg.Display.Width, cfg.Display.Rows
	renderer, err := render.NewRenderer(g.Hardware.Display, g.Log, layout)
	if err != nil {
		return errors.Trace(err)
	}
	g.Clock, err = clock.New(clock.Options{
		Log:      g.Log,
		Router:   router,
		Renderer: renderer,
		Stat:     g.Stat,
		Dwell:    cfg.Dwell(),
	})
	return errors.Annotate(err, "clock init")
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Start runs clock loop, then backlight watcher, transport and metrics listener.
func (g *Global) Start(ctx context.Context) error {
	if g.Clock == nil {
		return errors.NotValidf("code error Start() before Init()")
	}
	g.goRun("clock", func() error { g.Clock.Run(); return nil })
	helpers.GoAlive(g.Alive, func() { helpers.AliveSub(g.Alive, g.Clock.Alive()) })

	if err := g.startBacklight(); err != nil {
		return errors.Annotate(err, "backlight")
	}

	topics, _ := g.Config.Mqtt.ResolveTopics()
	tr, err := tele.NewTransport(g.Config.Mqtt.Transport)
	if err != nil {
		return errors.Trace(err)
	}
	if err := tr.Init(ctx, g.Log, g.Config.Mqtt, topics.List(), g.Clock); err != nil {
		return errors.Annotate(err, "tele init")
	}
	g.Tele = tr

	if g.Config.Metrics.Listen != "" {
		if _, err := clock.ServeMetrics(g.Alive, g.Log, g.Config.Metrics.Listen, g.Registry); err != nil {
			return errors.Annotate(err, "metrics")
		}
	}
	return nil
}

// Stop is reverse of Start, safe to call many times.
func (g *Global) Stop() {
	g.Alive.Stop()
	if g.Tele != nil {
		g.Tele.Close()
	}
	if g.Hardware.Backlight != nil {
		g.Hardware.Backlight.Stop()
	}
	if g.Clock != nil {
		g.Clock.Stop()
	}

	g.lk.Lock()
	closers := g.closers
	g.closers = nil
	g.lk.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			g.Error(err, "close")
		}
	}
	g.Alive.Wait()
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
	}
}

func (g *Global) addCloser(c io.Closer) {
	g.lk.Lock()
	g.closers = append(g.closers, c)
	g.lk.Unlock()
}

// goRun tracks f in Alive, errors are logged and stop whole application.
func (g *Global) goRun(tag string, f func() error) {
	helpers.GoAlive(g.Alive, func() {
		defer recoverFatal(g.Log)
		if err := f(); err != nil {
			g.Error(err, tag)
			g.Alive.Stop()
		}
	})
}

func recoverFatal(f helpers.Fataler) {
	if x := recover(); x != nil {
		f.Fatal(x)
	}
}
