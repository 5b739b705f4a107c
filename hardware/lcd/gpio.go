package lcd

import (
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const consumer = "tsclock-lcd"

type PinMap struct {
	RS        string `hcl:"rs"`
	RW        string `hcl:"rw"`
	E         string `hcl:"e"`
	D4        string `hcl:"d4"`
	D5        string `hcl:"d5"`
	D6        string `hcl:"d6"`
	D7        string `hcl:"d7"`
	Backlight string `hcl:"backlight"` // optional
}

// gpioBus is HD44780 wired directly to GPIO lines, RW held low.
type gpioBus struct {
	chip   gpio.Chiper
	pins   gpio.Lineser
	pin_rs gpio.LineSetFunc // command/data, aliases: A0, RS
	pin_rw gpio.LineSetFunc // read/write
	pin_e  gpio.LineSetFunc // enable
	pin_d4 gpio.LineSetFunc
	pin_d5 gpio.LineSetFunc
	pin_d6 gpio.LineSetFunc
	pin_d7 gpio.LineSetFunc
	pin_bl gpio.LineSetFunc // nil without backlight pin
}

func OpenGPIO(chipName string, pinmap PinMap) (Bus, error) {
	chip, err := gpio.Open(chipName, consumer)
	if err != nil {
		return nil, errors.Annotatef(err, "lcd gpio chip=%s", chipName)
	}
	bus, err := newGPIOBus(chip, pinmap)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}
	return bus, nil
}

func newGPIOBus(chip gpio.Chiper, pinmap PinMap) (*gpioBus, error) {
	names := []string{pinmap.RS, pinmap.RW, pinmap.E, pinmap.D4, pinmap.D5, pinmap.D6, pinmap.D7}
	if pinmap.Backlight != "" {
		names = append(names, pinmap.Backlight)
	}
	lines := make([]uint32, len(names))
	for i, s := range names {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, errors.NotValidf("lcd pin=%q", s)
		}
		lines[i] = uint32(n)
	}

	pins, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumer, lines...)
	if err != nil {
		return nil, errors.Annotate(err, "lcd gpio open lines")
	}
	self := &gpioBus{
		chip:   chip,
		pins:   pins,
		pin_rs: pins.SetFunc(lines[0]),
		pin_rw: pins.SetFunc(lines[1]),
		pin_e:  pins.SetFunc(lines[2]),
		pin_d4: pins.SetFunc(lines[3]),
		pin_d5: pins.SetFunc(lines[4]),
		pin_d6: pins.SetFunc(lines[5]),
		pin_d7: pins.SetFunc(lines[6]),
	}
	if len(lines) > 7 {
		self.pin_bl = pins.SetFunc(lines[7])
	}
	return self, nil
}

func (self *gpioBus) Close() error {
	err := self.pins.Close()
	if cerr := self.chip.Close(); err == nil {
		err = cerr
	}
	return err
}

func bit(b, n byte) byte { return (b >> n) & 1 }

func (self *gpioBus) Send4(rs, nibble byte) error {
	self.pin_rs(rs)
	self.pin_rw(0)
	self.pin_d4(bit(nibble, 0))
	self.pin_d5(bit(nibble, 1))
	self.pin_d6(bit(nibble, 2))
	self.pin_d7(bit(nibble, 3))
	self.pin_e(1)
	if err := self.pins.Flush(); err != nil {
		return errors.Annotate(err, "lcd gpio flush")
	}
	time.Sleep(1 * time.Microsecond)
	self.pin_e(0)
	if err := self.pins.Flush(); err != nil {
		return errors.Annotate(err, "lcd gpio flush")
	}
	time.Sleep(1 * time.Microsecond)
	return nil
}

func (self *gpioBus) SetBacklight(on bool) error {
	if self.pin_bl == nil {
		return nil
	}
	var v byte
	if on {
		v = 1
	}
	self.pin_bl(v)
	return errors.Annotate(self.pins.Flush(), "lcd gpio backlight")
}
