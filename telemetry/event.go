package telemetry

import "fmt"

// Event is decoded telemetry message.
// Implemented only by types in this package.
type Event interface {
	Channel() Channel
	String() string
	event()
}

type SessionStarted struct {
	SessionID string
	Version   uint32
}

type SessionEnded struct{}

type GameTimeUpdated struct{ Minutes uint32 }

type DistanceUpdated struct{ Meters float64 }

type EtaUpdated struct{ Seconds uint32 }

type RestStopUpdated struct{ Minutes uint32 }

func (SessionStarted) Channel() Channel  { return ChannelGameInfo }
func (SessionEnded) Channel() Channel    { return ChannelGameInfo }
func (GameTimeUpdated) Channel() Channel { return ChannelGameTime }
func (DistanceUpdated) Channel() Channel { return ChannelDistance }
func (EtaUpdated) Channel() Channel      { return ChannelEta }
func (RestStopUpdated) Channel() Channel { return ChannelRestStop }

func (e SessionStarted) String() string {
	return fmt.Sprintf("SessionStarted(id=%q version=%d)", e.SessionID, e.Version)
}
func (SessionEnded) String() string { return "SessionEnded" }
func (e GameTimeUpdated) String() string {
	return fmt.Sprintf("GameTimeUpdated(minutes=%d)", e.Minutes)
}
func (e DistanceUpdated) String() string { return fmt.Sprintf("DistanceUpdated(meters=%g)", e.Meters) }
func (e EtaUpdated) String() string      { return fmt.Sprintf("EtaUpdated(seconds=%d)", e.Seconds) }
func (e RestStopUpdated) String() string {
	return fmt.Sprintf("RestStopUpdated(minutes=%d)", e.Minutes)
}

func (SessionStarted) event()  {}
func (SessionEnded) event()    {}
func (GameTimeUpdated) event() {}
func (DistanceUpdated) event() {}
func (EtaUpdated) event()      {}
func (RestStopUpdated) event() {}
