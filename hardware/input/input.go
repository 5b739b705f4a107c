// Package input watches on/off switches: GPIO line edges or Linux input device keys.
package input

import (
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/log2"
)

const (
	DefaultPoll     = time.Second
	DefaultDebounce = 20 * time.Millisecond
)

// Switch is two-position control.
type Switch interface {
	io.Closer
	String() string
	// State returns current position.
	State() (bool, error)
	// Next blocks until position may have changed, returns errors.Timeout-class after timeout.
	Next(timeout time.Duration) (bool, error)
}

type ChangeFunc func(on bool)

// Watcher calls ChangeFunc with initial state and after every change.
type Watcher struct {
	alive    *alive.Alive
	log      *log2.Log
	sw       Switch
	onChange ChangeFunc
	poll     time.Duration
}

func NewWatcher(log *log2.Log, sw Switch, onChange ChangeFunc) *Watcher {
	return &Watcher{
		alive:    alive.NewAlive(),
		log:      log,
		sw:       sw,
		onChange: onChange,
		poll:     DefaultPoll,
	}
}

// Run blocks until Stop or switch read error.
func (self *Watcher) Run() error {
	if !self.alive.Add(1) {
		return nil
	}
	defer self.alive.Done()

	tag := self.sw.String()
	last, err := self.sw.State()
	if err != nil {
		return errors.Annotatef(err, "input switch=%s", tag)
	}
	self.log.Debugf("input switch=%s initial=%t", tag, last)
	self.onChange(last)

	for self.alive.IsRunning() {
		on, err := self.sw.Next(self.poll)
		if !self.alive.IsRunning() {
			return nil
		}
		if errors.IsTimeout(err) {
			continue
		}
		if err != nil {
			return errors.Annotatef(err, "input switch=%s", tag)
		}
		if on != last {
			self.log.Debugf("input switch=%s on=%t", tag, on)
			last = on
			self.onChange(on)
		}
	}
	return nil
}

func (self *Watcher) Stop() {
	self.alive.Stop()
	_ = self.sw.Close()
	self.alive.Wait()
}

// Const is switch fixed in one position, Next blocks until Close.
type Const struct {
	On   bool
	once chan struct{}
}

func NewConst(on bool) *Const { return &Const{On: on, once: make(chan struct{})} }

func (self *Const) String() string       { return "const" }
func (self *Const) State() (bool, error) { return self.On, nil }
func (self *Const) Close() error {
	select {
	case <-self.once:
	default:
		close(self.once)
	}
	return nil
}
func (self *Const) Next(timeout time.Duration) (bool, error) {
	select {
	case <-self.once:
		return self.On, errors.New("closed")
	case <-time.After(timeout):
		return self.On, errors.Timeoutf("const switch")
	}
}
