package telemetry

import (
	"fmt"

	"github.com/juju/errors"
)

// Router maps topic+payload to Event.
// Errors:
// - errors.IsNotFound: topic is not one of Topics
// - errors.IsNotValid: payload decode failed
// Both are expected in normal operation, callers drop the message.
type Router struct {
	topics Topics
}

func NewRouter(topics Topics) (*Router, error) {
	if err := topics.Validate(); err != nil {
		return nil, errors.Annotate(err, "router")
	}
	return &Router{topics: topics}, nil
}

func (r *Router) Topics() Topics { return r.topics }

func (r *Router) Route(topic string, payload []byte) (Event, error) {
	ch, ok := r.topics.Match(topic)
	if !ok {
		return nil, errors.NotFoundf("route topic=%s", topic)
	}
	p, err := DecodePayload(payload)
	if err != nil {
		return nil, errors.Annotatef(err, "route topic=%s channel=%s", topic, ch)
	}
	return Decode(ch, p), nil
}

// Decode never fails, missing fields become defaults.
func Decode(ch Channel, p Payload) Event {
	switch ch {
	case ChannelGameInfo:
		// absent, null or non-text id means the game was closed
		id, ok := p.Field(FieldGameID).Text()
		if !ok {
			return SessionEnded{}
		}
		version, _ := p.Field(FieldGameVersion).Uint32() // absent: 0
		return SessionStarted{SessionID: id, Version: version}

	case ChannelGameTime:
		m, _ := p.Field(FieldValue).Uint32()
		return GameTimeUpdated{Minutes: m}

	case ChannelDistance:
		m, _ := p.Field(FieldValue).Number()
		return DistanceUpdated{Meters: m}

	case ChannelEta:
		s, _ := p.Field(FieldValue).Uint32()
		return EtaUpdated{Seconds: s}

	case ChannelRestStop:
		m, _ := p.Field(FieldValue).Uint32()
		return RestStopUpdated{Minutes: m}

	case ChannelInvalid, channelCount:
	}
	panic(fmt.Sprintf("code error telemetry.Decode channel=%v", ch))
}
