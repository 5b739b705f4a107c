// Package text_display keeps character grid state in front of a device,
// translating text to device codepage and skipping redundant writes.
package text_display

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
)

const MaxWidth = 40

var spaceBytes = bytes.Repeat([]byte{' '}, MaxWidth)

type TextDisplay struct { //nolint:maligned
	mu        sync.Mutex
	dev       Devicer
	tr        atomic.Value
	width     uint32
	state     State
	backlight bool
	upd       chan<- State
}

type TextDisplayConfig struct {
	Codepage string
	Width    uint32
	Rows     uint32
}

// Devicer cursor is 1-based.
type Devicer interface {
	Clear() error
	CursorYX(y, x uint8) error
	Write(b []byte) error
	SetBacklight(on bool) error
}

func NewTextDisplay(opt *TextDisplayConfig) (*TextDisplay, error) {
	if opt == nil {
		return nil, errors.NotValidf("code error TextDisplayConfig=nil")
	}
	if opt.Width == 0 || opt.Width > MaxWidth || opt.Rows == 0 {
		return nil, errors.NotValidf("text display size=%dx%d", opt.Width, opt.Rows)
	}
	self := &TextDisplay{
		width: opt.Width,
		state: NewState(opt.Rows, opt.Width),
	}

	if opt.Codepage != "" {
		if err := self.SetCodepage(opt.Codepage); err != nil {
			return nil, errors.Trace(err)
		}
	}

	return self, nil
}

func (self *TextDisplay) SetCodepage(cp string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	tr, err := charset.TranslatorTo(cp)
	if err != nil {
		return errors.Annotatef(err, "codepage=%s", cp)
	}
	self.tr.Store(tr)
	return nil
}

func (self *TextDisplay) SetDevice(dev Devicer) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.dev = dev
}

func (self *TextDisplay) SetUpdateChan(ch chan<- State) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.upd = ch
}

func (self *TextDisplay) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if err := self.dev.Clear(); err != nil {
		return errors.Annotate(err, "text display clear")
	}
	self.state.Clear()
	self.notify()
	return nil
}

// WriteAt 0-based row and column, text is clipped at right edge.
// Bytes equal to current state are not sent to device.
// State changes only after device accepted the write.
func (self *TextDisplay) WriteAt(row, col int, text string) error {
	b := self.Translate(text)

	self.mu.Lock()
	defer self.mu.Unlock()

	if row < 0 || row >= len(self.state.Lines) || col < 0 || col >= int(self.width) {
		return errors.NotValidf("text display position row=%d col=%d", row, col)
	}
	line := self.state.Lines[row]
	if room := len(line) - col; len(b) > room {
		b = b[:room]
	}
	if bytes.Equal(line[col:col+len(b)], b) {
		return nil
	}
	if err := self.dev.CursorYX(uint8(row+1), uint8(col+1)); err != nil {
		return errors.Annotate(err, "text display cursor")
	}
	if err := self.dev.Write(b); err != nil {
		return errors.Annotate(err, "text display write")
	}
	copy(line[col:], b)
	self.notify()
	return nil
}

func (self *TextDisplay) SetBacklight(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.backlight = on
	return errors.Annotate(self.dev.SetBacklight(on), "text display backlight")
}

func (self *TextDisplay) Backlight() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.backlight
}

// Translate to device codepage. Characters missing in codepage become '?'.
func (self *TextDisplay) Translate(s string) []byte {
	if len(s) == 0 {
		return spaceBytes[:0]
	}

	result := []byte(s)
	tr, ok := self.tr.Load().(charset.Translator)
	if ok && tr != nil {
		self.mu.Lock()
		_, tb, err := tr.Translate(result, true)
		// translator reuses single internal buffer, make a copy
		tb = append([]byte(nil), tb...)
		self.mu.Unlock()
		if err != nil {
			return bytes.Repeat([]byte{'?'}, len([]rune(s)))
		}
		result = tb
	}
	return result
}

func (self *TextDisplay) State() State {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.state.Copy()
}

// caller must hold mu
func (self *TextDisplay) notify() {
	if self.upd != nil {
		self.upd <- self.state.Copy()
	}
}

type State struct {
	Lines [][]byte
}

func NewState(rows, width uint32) State {
	s := State{Lines: make([][]byte, rows)}
	for i := range s.Lines {
		s.Lines[i] = make([]byte, width)
	}
	s.Clear()
	return s
}

func (s *State) Clear() {
	for _, line := range s.Lines {
		copy(line, spaceBytes)
	}
}

func (s State) Copy() State {
	c := State{Lines: make([][]byte, len(s.Lines))}
	for i, line := range s.Lines {
		c.Lines[i] = append([]byte(nil), line...)
	}
	return c
}

func (s State) String() string {
	lines := make([]string, len(s.Lines))
	for i, line := range s.Lines {
		lines[i] = string(line)
	}
	return strings.Join(lines, "\n")
}

// PadSpace returns `b` when len>=width, otherwise pads with spaces.
func PadSpace(b []byte, width uint32) []byte {
	l := uint32(len(b))

	if l == 0 {
		return spaceBytes[:width]
	}
	if l >= width {
		return b
	}
	buf := make([]byte, 0, width)
	buf = append(append(buf, b...), spaceBytes[:width-l]...)
	return buf
}
