package telemetry

import (
	"fmt"
	"strings"
)

// Snapshot is the last known telemetry values needed for redraw.
// Eta and rest stop are kept as durations, projected times follow CurrentTime.
type Snapshot struct {
	CurrentTime     uint32 // seconds since Monday 00:00
	PendingEta      uint32 // seconds until arrival
	PendingRestStop uint32 // seconds until rest stop
}

// Effect is set of display updates required after Apply.
type Effect uint8

const (
	EffectWelcome Effect = 1 << iota
	EffectEnded
	EffectTime
	EffectDistance
	EffectEta
	EffectRestStop

	EffectNone Effect = 0
)

func (e Effect) Has(x Effect) bool { return e&x == x }

func (e Effect) String() string {
	if e == EffectNone {
		return "none"
	}
	names := [...]string{"welcome", "ended", "time", "distance", "eta", "rest-stop"}
	parts := make([]string, 0, len(names))
	for i, name := range names {
		if e&(1<<uint(i)) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

func (s *Snapshot) Reset() { *s = Snapshot{} }

func (s *Snapshot) Apply(e Event) Effect {
	switch x := e.(type) {
	case SessionStarted:
		return EffectWelcome

	case SessionEnded:
		s.Reset()
		return EffectEnded

	case GameTimeUpdated:
		s.CurrentTime = x.Minutes * SecondsPerMinute
		return EffectTime | EffectEta | EffectRestStop

	case DistanceUpdated:
		return EffectDistance

	case EtaUpdated:
		s.PendingEta = x.Seconds
		return EffectEta

	case RestStopUpdated:
		s.PendingRestStop = x.Minutes * SecondsPerMinute
		return EffectRestStop
	}
	panic(fmt.Sprintf("code error Snapshot.Apply unknown event=%#v", e))
}

func (s Snapshot) TimeText() string     { return FormatAbsolute(uint64(s.CurrentTime)) }
func (s Snapshot) EtaText() string      { return FormatUntil(s.CurrentTime, s.PendingEta) }
func (s Snapshot) RestStopText() string { return FormatUntil(s.CurrentTime, s.PendingRestStop) }

func (s Snapshot) String() string {
	return fmt.Sprintf("time=%d eta=%d rest=%d", s.CurrentTime, s.PendingEta, s.PendingRestStop)
}
