package render

import (
	"strings"
	"sync"

	"github.com/juju/errors"
)

// MockDisplay keeps grid in memory. Used by tests and console.
type MockDisplay struct {
	mu        sync.Mutex
	width     int
	grid      [][]rune
	backlight bool
	clears    int
	writes    int
	upd       chan<- string
}

func NewMockDisplay(width, rows int) *MockDisplay {
	d := &MockDisplay{width: width, grid: make([][]rune, rows)}
	d.clear()
	return d
}

// SetUpdateChan receives grid String() after every change.
func (d *MockDisplay) SetUpdateChan(ch chan<- string) {
	d.mu.Lock()
	d.upd = ch
	d.mu.Unlock()
}

func (d *MockDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
	d.clears++
	d.notify()
	return nil
}

func (d *MockDisplay) WriteAt(row, col int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row < 0 || row >= len(d.grid) || col < 0 || col >= d.width {
		return errors.NotValidf("mock display position row=%d col=%d", row, col)
	}
	copy(d.grid[row][col:], []rune(text))
	d.writes++
	d.notify()
	return nil
}

func (d *MockDisplay) SetBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = on
	return nil
}

func (d *MockDisplay) Backlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backlight
}

func (d *MockDisplay) Row(row int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.grid[row])
}

// Counts returns number of Clear and WriteAt calls.
func (d *MockDisplay) Counts() (clears, writes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears, d.writes
}

func (d *MockDisplay) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.string()
}

func (d *MockDisplay) clear() {
	for i := range d.grid {
		d.grid[i] = []rune(strings.Repeat(" ", d.width))
	}
}

func (d *MockDisplay) notify() {
	if d.upd != nil {
		d.upd <- d.string()
	}
}

func (d *MockDisplay) string() string {
	lines := make([]string, len(d.grid))
	for i, row := range d.grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}
