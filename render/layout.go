package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/tsclock/tsclock/telemetry"
)

const (
	DefaultWidth  = 20
	DefaultRows   = 4
	DistanceWidth = 14
)

// Position of text on grid, 0-based.
type Position struct{ Row, Col int }

// Layout is fixed presentation contract of 20x4 display.
type Layout struct {
	Width int
	Rows  int

	Waiting [2]string
	Title   string
	Ended   string

	// telemetry frame: static label and value position per field
	Labels [fieldCount]string
	Values [fieldCount]Position
}

func DefaultLayout() Layout {
	return Layout{
		Width:   DefaultWidth,
		Rows:    DefaultRows,
		Waiting: [2]string{"Connected...", "Waiting for game..."},
		Title:   "TruckSim Clock",
		Ended:   "Goodbye...",
		Labels: [fieldCount]string{
			FieldTime:     "Time",
			FieldDistance: "Dist",
			FieldEta:      "ETA",
			FieldRestStop: "RST",
		},
		Values: [fieldCount]Position{
			FieldTime:     {Row: 0, Col: 11},
			FieldDistance: {Row: 1, Col: 6},
			FieldEta:      {Row: 2, Col: 4},
			FieldRestStop: {Row: 3, Col: 4},
		},
	}
}

func (l Layout) Validate() error {
	if l.Width <= 0 || l.Rows <= 0 {
		return errors.NotValidf("layout size=%dx%d", l.Width, l.Rows)
	}
	for f := Field(0); f < fieldCount; f++ {
		p := l.Values[f]
		if p.Row < 0 || p.Row >= l.Rows || p.Col < 0 || p.Col >= l.Width {
			return errors.NotValidf("layout field=%s position=%v outside %dx%d", f, p, l.Width, l.Rows)
		}
	}
	return nil
}

// Fit truncates s to grid from col.
func (l Layout) Fit(col int, s string) string {
	room := l.Width - col
	if room <= 0 {
		return ""
	}
	return truncate(s, room)
}

// PadRight to exact width in characters, truncating longer text.
func PadRight(s string, width int) string {
	s = truncate(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// truncate keeps at most n characters, never splits multibyte sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// FormatDistance one decimal km right justified in DistanceWidth.
func FormatDistance(km float64) string {
	return fmt.Sprintf("%*.1fkm", DistanceWidth-2, km)
}

func DefaultFieldText(f Field) string {
	switch f {
	case FieldTime:
		return telemetry.FormatAbsolute(0)
	case FieldDistance:
		return FormatDistance(0)
	case FieldEta, FieldRestStop:
		return telemetry.FormatUntil(0, 0)
	}
	panic(fmt.Sprintf("code error DefaultFieldText field=%v", f))
}
