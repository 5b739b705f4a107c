package render

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/tsclock/tsclock/log2"
)

// Renderer owns current frame and latest text of telemetry fields.
// Field updates while another frame is visible are remembered
// and drawn when telemetry frame is shown.
// Not safe for concurrent use.
type Renderer struct {
	d      Display
	log    *log2.Log
	layout Layout
	frame  Frame
	fields [fieldCount]string
}

func NewRenderer(d Display, log *log2.Log, layout Layout) (*Renderer, error) {
	if d == nil {
		return nil, errors.NotValidf("code error render display=nil")
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.Annotate(err, "render")
	}
	r := &Renderer{d: d, log: log, layout: layout}
	r.ResetFields()
	return r, nil
}

func (r *Renderer) Frame() Frame             { return r.frame }
func (r *Renderer) Layout() Layout           { return r.layout }
func (r *Renderer) FieldText(f Field) string { return r.fields[f] }

// ResetFields forgets all values, does not redraw.
func (r *Renderer) ResetFields() {
	for f := Field(0); f < fieldCount; f++ {
		r.fields[f] = DefaultFieldText(f)
	}
}

func (r *Renderer) ShowWaiting() error {
	return r.show(FrameWaiting, r.layout.Waiting[0], r.layout.Waiting[1])
}

func (r *Renderer) ShowWelcome(id string, version uint32) error {
	return r.show(FrameWelcome,
		r.layout.Title,
		"Game: "+id,
		fmt.Sprintf("Version: %d", version))
}

func (r *Renderer) ShowEnded() error {
	return r.show(FrameEnded, r.layout.Ended)
}

func (r *Renderer) ShowTelemetry() error {
	r.frame = FrameTelemetry
	r.log.Debugf("render frame=%s", r.frame)
	if err := r.d.Clear(); err != nil {
		return errors.Annotate(err, "render clear")
	}
	var first error
	for f := Field(0); f < fieldCount; f++ {
		pos := r.layout.Values[f]
		if label := r.layout.Labels[f]; label != "" {
			if err := r.d.WriteAt(pos.Row, 0, r.layout.Fit(0, label)); err != nil && first == nil {
				first = errors.Annotatef(err, "render label field=%s", f)
			}
		}
		if err := r.writeField(f); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetField remembers text and draws it if telemetry frame is visible.
func (r *Renderer) SetField(f Field, text string) error {
	if f >= fieldCount {
		panic(fmt.Sprintf("code error render field=%d", f))
	}
	r.fields[f] = text
	if r.frame != FrameTelemetry {
		r.log.Debugf("render field=%s held, frame=%s", f, r.frame)
		return nil
	}
	return r.writeField(f)
}

func (r *Renderer) SetBacklight(on bool) error {
	return errors.Annotate(r.d.SetBacklight(on), "render backlight")
}

func (r *Renderer) writeField(f Field) error {
	pos := r.layout.Values[f]
	// pad to row end, so shorter text erases previous
	text := PadRight(r.fields[f], r.layout.Width-pos.Col)
	if err := r.d.WriteAt(pos.Row, pos.Col, text); err != nil {
		return errors.Annotatef(err, "render field=%s", f)
	}
	return nil
}

func (r *Renderer) show(frame Frame, lines ...string) error {
	r.frame = frame
	r.log.Debugf("render frame=%s", frame)
	if err := r.d.Clear(); err != nil {
		return errors.Annotate(err, "render clear")
	}
	for row, line := range lines {
		if row >= r.layout.Rows {
			break
		}
		if line == "" {
			continue
		}
		if err := r.d.WriteAt(row, 0, r.layout.Fit(0, line)); err != nil {
			return errors.Annotatef(err, "render frame=%s row=%d", frame, row)
		}
	}
	return nil
}
