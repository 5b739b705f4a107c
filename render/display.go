// Package render places telemetry text on a character grid.
package render

// Display is a character grid, rows and columns are 0-based.
type Display interface {
	Clear() error
	WriteAt(row, col int, text string) error
	SetBacklight(on bool) error
}

type Frame uint8

const (
	FrameNone Frame = iota
	FrameWaiting
	FrameWelcome
	FrameTelemetry
	FrameEnded
)

func (f Frame) String() string {
	switch f {
	case FrameNone:
		return "none"
	case FrameWaiting:
		return "waiting"
	case FrameWelcome:
		return "welcome"
	case FrameTelemetry:
		return "telemetry"
	case FrameEnded:
		return "ended"
	}
	return "frame?"
}

// Field is a variable part of telemetry frame.
type Field uint8

const (
	FieldTime Field = iota
	FieldDistance
	FieldEta
	FieldRestStop
	fieldCount
)

func (f Field) String() string {
	switch f {
	case FieldTime:
		return "time"
	case FieldDistance:
		return "distance"
	case FieldEta:
		return "eta"
	case FieldRestStop:
		return "rest-stop"
	}
	return "field?"
}
