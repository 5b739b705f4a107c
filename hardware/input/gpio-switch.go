package input

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const consumer = "tsclock-input"

// GpioSwitch reports line level, active_low inverts in kernel.
type GpioSwitch struct {
	chip     gpio.Chiper
	ev       gpio.Eventer
	line     uint32
	debounce time.Duration
}

var _ Switch = &GpioSwitch{}

func OpenGpioSwitch(chipName string, line uint32, activeLow bool) (*GpioSwitch, error) {
	chip, err := gpio.Open(chipName, consumer)
	if err != nil {
		return nil, errors.Annotatef(err, "input gpio chip=%s", chipName)
	}
	sw, err := NewGpioSwitch(chip, line, activeLow)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}
	return sw, nil
}

func NewGpioSwitch(chip gpio.Chiper, line uint32, activeLow bool) (*GpioSwitch, error) {
	flag := gpio.GPIOHANDLE_REQUEST_INPUT
	if activeLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	ev, err := chip.GetLineEvent(line, flag, gpio.GPIOEVENT_REQUEST_BOTH_EDGES, consumer)
	if err != nil {
		return nil, errors.Annotatef(err, "input gpio line=%d", line)
	}
	return &GpioSwitch{chip: chip, ev: ev, line: line, debounce: DefaultDebounce}, nil
}

func (self *GpioSwitch) String() string { return fmt.Sprintf("gpio:%d", self.line) }

func (self *GpioSwitch) Close() error {
	err := self.ev.Close()
	if gpio.IsClosed(err) {
		err = nil
	}
	if cerr := self.chip.Close(); err == nil && !gpio.IsClosed(cerr) {
		err = cerr
	}
	return err
}

func (self *GpioSwitch) State() (bool, error) {
	v, err := self.ev.Read()
	return v != 0, err
}

// Next waits for edge, lets contacts settle and reads level.
func (self *GpioSwitch) Next(timeout time.Duration) (bool, error) {
	_, err := self.ev.Wait(timeout)
	if gpio.IsTimeout(err) {
		return false, errors.Timeoutf("gpio line=%d wait", self.line)
	}
	if err != nil {
		return false, err
	}
	time.Sleep(self.debounce)
	return self.State()
}
