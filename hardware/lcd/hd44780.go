// Package lcd drives HD44780 compatible character displays in 4-bit mode.
package lcd

import (
	"io"
	"time"

	"github.com/juju/errors"
)

type Command byte

const (
	CommandClear    Command = 0x01
	CommandReturn   Command = 0x02
	CommandEntry    Command = 0x04
	CommandControl  Command = 0x08
	CommandFunction Command = 0x20
	CommandAddress  Command = 0x80
)

type Control byte

const (
	ControlOn         Control = 0x04
	ControlUnderscore Control = 0x02
	ControlBlink      Control = 0x01
)

const (
	ddramRow2 = 0x40
	MaxRows   = 4
	MaxCols   = 40
)

// Bus moves one nibble (low 4 bits) to controller, rs=0 command, rs=1 data.
type Bus interface {
	io.Closer
	Send4(rs, nibble byte) error
	SetBacklight(on bool) error
}

type LCD struct {
	bus     Bus
	control Control
	rows    uint8
	cols    uint8
	sleep   func(time.Duration)
}

func New(bus Bus, rows, cols uint8, page1 bool) (*LCD, error) {
	return newLCD(bus, rows, cols, page1, time.Sleep)
}

func newLCD(bus Bus, rows, cols uint8, page1 bool, sleep func(time.Duration)) (*LCD, error) {
	if rows == 0 || rows > MaxRows || cols == 0 || cols > MaxCols {
		return nil, errors.NotValidf("lcd size=%dx%d", cols, rows)
	}
	self := &LCD{bus: bus, rows: rows, cols: cols, sleep: sleep}
	if err := self.init4(page1); err != nil {
		return nil, errors.Annotate(err, "lcd init")
	}
	return self, nil
}

func (self *LCD) Close() error { return self.bus.Close() }

func (self *LCD) init4(page1 bool) error {
	self.sleep(20 * time.Millisecond)

	// special sequence, switches controller into 4-bit mode from any state
	if err := self.Command(0x33); err != nil {
		return err
	}
	if err := self.Command(0x32); err != nil {
		return err
	}

	if err := self.SetFunction(false, self.rows > 1, page1); err != nil {
		return err
	}
	if _, err := self.SetControl(0); err != nil {
		return err
	}
	if _, err := self.SetControl(ControlOn); err != nil {
		return err
	}
	if err := self.Clear(); err != nil {
		return err
	}
	return self.SetEntryMode(true, false)
}

func (self *LCD) send(rs, b byte) error {
	if err := self.bus.Send4(rs, b>>4); err != nil {
		return errors.Trace(err)
	}
	if err := self.bus.Send4(rs, b&0x0f); err != nil {
		return errors.Trace(err)
	}
	// TODO poll busy flag, needs RW line and input direction
	self.sleep(40 * time.Microsecond)
	return nil
}

func (self *LCD) Command(c Command) error { return self.send(0, byte(c)) }
func (self *LCD) Data(b byte) error       { return self.send(1, b) }

func (self *LCD) Write(bs []byte) error {
	for _, b := range bs {
		if err := self.Data(b); err != nil {
			return err
		}
	}
	return nil
}

func (self *LCD) Clear() error {
	err := self.Command(CommandClear)
	self.sleep(2 * time.Millisecond)
	return err
}

func (self *LCD) Return() error {
	err := self.Command(CommandReturn)
	self.sleep(2 * time.Millisecond)
	return err
}

func (self *LCD) SetEntryMode(right, shift bool) error {
	cmd := CommandEntry
	if right {
		cmd |= 0x02
	}
	if shift {
		cmd |= 0x01
	}
	return self.Command(cmd)
}

func (self *LCD) Control() Control { return self.control }

func (self *LCD) SetControl(new Control) (Control, error) {
	old := self.control
	self.control = new
	return old, self.Command(CommandControl | Command(new))
}

func (self *LCD) SetFunction(bits8, lines2, page1 bool) error {
	cmd := CommandFunction
	if bits8 {
		cmd |= 0x10
	}
	if lines2 {
		cmd |= 0x08
	}
	if page1 {
		cmd |= 0x02
	}
	return self.Command(cmd)
}

// CursorYX is 1-based. Rows 3,4 continue rows 1,2 in DDRAM.
func (self *LCD) CursorYX(row, column uint8) error {
	if row == 0 || row > self.rows || column == 0 || column > self.cols {
		return errors.NotValidf("lcd cursor row=%d column=%d size=%dx%d", row, column, self.cols, self.rows)
	}
	offsets := [MaxRows]uint8{0, ddramRow2, self.cols, ddramRow2 + self.cols}
	addr := offsets[row-1] + column - 1
	return self.Command(CommandAddress | Command(addr))
}

func (self *LCD) SetBacklight(on bool) error { return self.bus.SetBacklight(on) }
