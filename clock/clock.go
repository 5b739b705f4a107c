// Package clock runs the single loop that turns telemetry messages into display frames.
package clock

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/log2"
	"github.com/tsclock/tsclock/render"
	"github.com/tsclock/tsclock/telemetry"
)

const (
	DefaultDwell     = 3 * time.Second
	DefaultInboxSize = 16
)

// Message is one publication received from the bus.
type Message struct {
	Topic   string
	Payload []byte
}

type Options struct {
	Log      *log2.Log
	Router   *telemetry.Router
	Renderer *render.Renderer
	Stat     *Stat // optional
	Dwell    time.Duration
	Inbox    int
}

// Clock owns Snapshot and Renderer, both touched only from Run goroutine.
type Clock struct {
	alive  *alive.Alive
	log    *log2.Log
	router *telemetry.Router
	r      *render.Renderer
	stat   *Stat
	dwell  time.Duration
	inbox  chan interface{}

	snap       telemetry.Snapshot
	generation uint64
	timer      *time.Timer
}

type dwellEnd struct{ generation uint64 }
type connected struct{}
type backlight struct{ on bool }
type inspect struct {
	fun  func(telemetry.Snapshot, render.Frame)
	done chan struct{}
}

func New(opt Options) (*Clock, error) {
	if opt.Router == nil || opt.Renderer == nil {
		return nil, errors.NotValidf("code error clock router/renderer=nil")
	}
	if opt.Dwell <= 0 {
		opt.Dwell = DefaultDwell
	}
	if opt.Inbox <= 0 {
		opt.Inbox = DefaultInboxSize
	}
	self := &Clock{
		alive:  alive.NewAlive(),
		log:    opt.Log,
		router: opt.Router,
		r:      opt.Renderer,
		stat:   opt.Stat,
		dwell:  opt.Dwell,
		inbox:  make(chan interface{}, opt.Inbox),
	}
	return self, nil
}

func (self *Clock) Alive() *alive.Alive  { return self.alive }
func (self *Clock) Dwell() time.Duration { return self.dwell }

// Run processes inbox until Stop. Blocks.
func (self *Clock) Run() {
	if !self.alive.Add(1) {
		return
	}
	defer self.alive.Done()
	stopch := self.alive.StopChan()
	for {
		select {
		case x := <-self.inbox:
			self.handle(x)
		case <-stopch:
			if self.timer != nil {
				self.timer.Stop()
			}
			return
		}
	}
}

func (self *Clock) Stop() {
	self.alive.Stop()
	self.alive.Wait()
}

// Deliver is the transport callback. Blocks while inbox is full,
// so delivery order is kept. Returns false after Stop.
func (self *Clock) Deliver(topic string, payload []byte) bool {
	return self.post(Message{Topic: topic, Payload: payload})
}

// Connected shows waiting frame unless something else is visible already.
func (self *Clock) Connected() { self.post(connected{}) }

func (self *Clock) SetBacklight(on bool) { self.post(backlight{on: on}) }

// Inspect runs f on loop goroutine with current state and waits for it.
// Also serves as barrier: all messages delivered before Inspect are handled.
func (self *Clock) Inspect(f func(telemetry.Snapshot, render.Frame)) bool {
	x := inspect{fun: f, done: make(chan struct{})}
	if !self.post(x) {
		return false
	}
	select {
	case <-x.done:
		return true
	case <-self.alive.StopChan():
		return false
	}
}

func (self *Clock) Snapshot() telemetry.Snapshot {
	var s telemetry.Snapshot
	self.Inspect(func(x telemetry.Snapshot, _ render.Frame) { s = x })
	return s
}

func (self *Clock) post(x interface{}) bool {
	if !self.alive.IsRunning() {
		return false
	}
	select {
	case self.inbox <- x:
		return true
	case <-self.alive.StopChan():
		return false
	}
}

func (self *Clock) handle(x interface{}) {
	switch m := x.(type) {
	case Message:
		self.handleMessage(m)

	case dwellEnd:
		if m.generation != self.generation || self.r.Frame() != render.FrameWelcome {
			self.log.Debugf("clock dwell end generation=%d current=%d ignored", m.generation, self.generation)
			self.stat.dropped(DropStaleDwell)
			return
		}
		self.timer = nil
		self.showTelemetry()

	case connected:
		if self.r.Frame() == render.FrameNone {
			self.check(self.r.ShowWaiting(), "waiting")
			self.stat.frame(render.FrameWaiting.String())
		}

	case backlight:
		self.check(self.r.SetBacklight(m.on), "backlight")

	case inspect:
		m.fun(self.snap, self.r.Frame())
		close(m.done)

	default:
		self.log.Errorf("code error clock unknown inbox item=%#v", x)
	}
}

func (self *Clock) handleMessage(m Message) {
	e, err := self.router.Route(m.Topic, m.Payload)
	if err != nil {
		reason := DropDecode
		if errors.IsNotFound(err) {
			reason = DropUnroutable
		}
		self.log.Debugf("clock drop reason=%s err=%v", reason, err)
		self.stat.dropped(reason)
		return
	}
	self.log.Debugf("clock event=%s", e)
	effect := self.snap.Apply(e)
	self.stat.applied(e.Channel())
	self.apply(e, effect)
}

func (self *Clock) apply(e telemetry.Event, effect telemetry.Effect) {
	switch {
	case effect.Has(telemetry.EffectWelcome):
		started := e.(telemetry.SessionStarted)
		self.restartDwell()
		self.check(self.r.ShowWelcome(started.SessionID, started.Version), "welcome")
		self.stat.frame(render.FrameWelcome.String())
		return

	case effect.Has(telemetry.EffectEnded):
		self.cancelDwell()
		self.r.ResetFields()
		self.check(self.r.ShowEnded(), "ended")
		self.stat.frame(render.FrameEnded.String())
		return
	}

	if effect.Has(telemetry.EffectTime) {
		self.check(self.r.SetField(render.FieldTime, self.snap.TimeText()), "time")
	}
	if effect.Has(telemetry.EffectDistance) {
		meters := e.(telemetry.DistanceUpdated).Meters
		self.check(self.r.SetField(render.FieldDistance, render.FormatDistance(telemetry.Kilometers(meters))), "distance")
	}
	if effect.Has(telemetry.EffectEta) {
		self.check(self.r.SetField(render.FieldEta, self.snap.EtaText()), "eta")
	}
	if effect.Has(telemetry.EffectRestStop) {
		self.check(self.r.SetField(render.FieldRestStop, self.snap.RestStopText()), "rest-stop")
	}
}

func (self *Clock) restartDwell() {
	self.cancelDwell()
	gen := self.generation
	self.timer = time.AfterFunc(self.dwell, func() { self.post(dwellEnd{generation: gen}) })
}

// cancelDwell makes any pending dwell end stale.
func (self *Clock) cancelDwell() {
	self.generation++
	if self.timer != nil {
		self.timer.Stop()
		self.timer = nil
	}
}

func (self *Clock) showTelemetry() {
	self.check(self.r.ShowTelemetry(), "telemetry")
	self.stat.frame(render.FrameTelemetry.String())
}

func (self *Clock) check(err error, what string) {
	if err != nil {
		self.log.Errorf("clock display %s err=%v", what, errors.ErrorStack(err))
	}
}
