package state

import (
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/hardware/input"
	"github.com/tsclock/tsclock/hardware/lcd"
	"github.com/tsclock/tsclock/hardware/text_display"
)

func (g *Global) initDisplay() error {
	c := &g.Config.Display
	d, err := text_display.NewTextDisplay(&text_display.TextDisplayConfig{
		Codepage: c.Codepage,
		Width:    uint32(c.Width),
		Rows:     uint32(c.Rows),
	})
	if err != nil {
		return errors.Annotatef(err, "config: display=%v", c)
	}

	// This may only be already set by tests
	if g.Hardware.Device == nil {
		dev, err := g.openDevice()
		if err != nil {
			return err
		}
		g.Hardware.Device = dev
	}
	d.SetDevice(g.Hardware.Device)
	if err = d.Clear(); err != nil {
		return errors.Annotate(err, "display clear")
	}
	g.Hardware.Display = d
	return nil
}

func (g *Global) openDevice() (text_display.Devicer, error) {
	c := &g.Config.Display
	var bus lcd.Bus
	var err error
	switch c.Driver {
	case DisplayDriverMock:
		return text_display.NewMockDevicer(uint32(c.Rows), uint32(c.Width)), nil
	case DisplayDriverGPIO:
		bus, err = lcd.OpenGPIO(c.PinChip, c.Pinmap)
	case DisplayDriverI2C:
		bus, err = lcd.OpenI2C(c.I2CBus, uint16(c.I2CAddr))
	default:
		return nil, errors.NotSupportedf("display.driver=%s", c.Driver)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "display driver=%s", c.Driver)
	}
	dev, err := lcd.New(bus, uint8(c.Rows), uint8(c.Width), c.Page1)
	if err != nil {
		_ = bus.Close()
		return nil, errors.Annotate(err, "lcd init")
	}
	g.addCloser(dev)
	return dev, nil
}

func (g *Global) openSwitch() (input.Switch, bool, error) {
	c := &g.Config.Backlight
	switch c.Source {
	case BacklightSourceGPIO:
		// kernel applies active_low
		sw, err := input.OpenGpioSwitch(c.PinChip, uint32(c.Pin), c.ActiveLow)
		return sw, false, err
	case BacklightSourceInput:
		sw, err := input.NewDevInputEventSource(c.Device, uint16(c.Key), c.Switch)
		return sw, c.ActiveLow, err
	}
	return nil, false, errors.NotSupportedf("backlight.source=%s", c.Source)
}

func (g *Global) startBacklight() error {
	switch g.Config.Backlight.Source {
	case BacklightSourceNone:
		return nil
	case BacklightSourceOn:
		g.Clock.SetBacklight(true)
		return nil
	}

	sw, invert, err := g.openSwitch()
	if err != nil {
		return errors.Trace(err)
	}
	w := input.NewWatcher(g.Log, sw, func(on bool) { g.Clock.SetBacklight(on != invert) })
	g.Hardware.Backlight = w
	g.goRun("backlight", w.Run)
	return nil
}
