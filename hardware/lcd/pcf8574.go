package lcd

import (
	"io"
	"sync"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const DefaultI2CAddr = 0x27

// PCF8574 backpack wiring: P0=RS P1=RW P2=E P3=backlight P4..P7=D4..D7
const (
	pcfRS byte = 1 << 0
	pcfRW byte = 1 << 1
	pcfE  byte = 1 << 2
	pcfBL byte = 1 << 3
)

type txer interface {
	Tx(w, r []byte) error
}

type i2cBus struct {
	mu        sync.Mutex
	dev       txer
	closer    io.Closer
	backlight byte
}

// OpenI2C opens bus by periph name ("" for first, "1" for /dev/i2c-1).
func OpenI2C(busName string, addr uint16) (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "lcd i2c bus=%s", busName)
	}
	if addr == 0 {
		addr = DefaultI2CAddr
	}
	return newI2CBus(&i2c.Dev{Bus: b, Addr: addr}, b), nil
}

func newI2CBus(dev txer, closer io.Closer) *i2cBus {
	return &i2cBus{dev: dev, closer: closer}
}

func (self *i2cBus) Close() error {
	if self.closer == nil {
		return nil
	}
	return self.closer.Close()
}

// Send4 latches nibble on falling edge of E, both edges in one transaction.
func (self *i2cBus) Send4(rs, nibble byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	v := nibble<<4 | self.backlight
	if rs != 0 {
		v |= pcfRS
	}
	return errors.Annotate(self.dev.Tx([]byte{v | pcfE, v}, nil), "lcd i2c")
}

func (self *i2cBus) SetBacklight(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.backlight = 0
	if on {
		self.backlight = pcfBL
	}
	return errors.Annotate(self.dev.Tx([]byte{self.backlight}, nil), "lcd i2c backlight")
}
