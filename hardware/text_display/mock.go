package text_display

import (
	"fmt"
	"strings"
	"sync"
)

func NewMockTextDisplay(opt *TextDisplayConfig) (*TextDisplay, *MockDevicer) {
	display, err := NewTextDisplay(opt)
	if err != nil {
		panic(err)
	}
	dev := NewMockDevicer(opt.Rows, opt.Width)
	display.SetDevice(dev)
	return display, dev
}

// MockDevicer emulates DDRAM per row with auto-increment cursor.
type MockDevicer struct {
	mu        sync.Mutex
	lines     [][]byte
	y, x      uint8
	backlight bool
	writes    int
}

func NewMockDevicer(rows, width uint32) *MockDevicer {
	self := &MockDevicer{lines: NewState(rows, width).Lines, y: 1, x: 1}
	return self
}

func (self *MockDevicer) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	for _, line := range self.lines {
		copy(line, spaceBytes)
	}
	self.y, self.x = 1, 1
	return nil
}

func (self *MockDevicer) CursorYX(y, x uint8) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if y == 0 || int(y) > len(self.lines) || x == 0 || int(x) > len(self.lines[0]) {
		return fmt.Errorf("mock cursor y=%d x=%d", y, x)
	}
	self.y, self.x = y, x
	return nil
}

func (self *MockDevicer) Write(b []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	line := self.lines[self.y-1]
	n := copy(line[self.x-1:], b)
	self.x += uint8(n)
	self.writes++
	return nil
}

func (self *MockDevicer) SetBacklight(on bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.backlight = on
	return nil
}

func (self *MockDevicer) Backlight() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.backlight
}

// Writes returns number of Write calls.
func (self *MockDevicer) Writes() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.writes
}

func (self *MockDevicer) String() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	lines := make([]string, len(self.lines))
	for i, line := range self.lines {
		lines[i] = string(line)
	}
	return strings.Join(lines, "\n")
}
