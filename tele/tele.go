// Package tele receives telemetry from MQTT broker.
package tele

import (
	"context"

	"github.com/juju/errors"
	"github.com/tsclock/tsclock/log2"
	tele_config "github.com/tsclock/tsclock/tele/config"
)

const (
	DefaultClientID       = "tsclock"
	defaultKeepaliveSec   = 60
	defaultNetTimeoutSec  = 30
	defaultReconnectSec   = 5
	disconnectQuiesceMsec = 250
)

// Handler consumes messages. Deliver is never called concurrently.
type Handler interface {
	Deliver(topic string, payload []byte) bool
	Connected()
}

// Transport contract:
// - Init fails only with invalid config, ignores network errors
// - application may start without network available, reconnect forever
// - subscribe to all topics after every (re)connect, then Handler.Connected()
// - QOS 0, messages are delivered one at a time in arrival order
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, c tele_config.Config, topics []string, h Handler) error
	Close()
}

func NewTransport(name string) (Transporter, error) {
	switch name {
	case "", tele_config.TransportPaho:
		return &transportPaho{}, nil
	case tele_config.TransportGomqtt:
		return &transportGomqtt{}, nil
	case tele_config.TransportNone:
		return stub{}, nil
	}
	return nil, errors.NotValidf("mqtt transport=%s (expected paho|gomqtt|none)", name)
}

type stub struct{}

func (stub) Init(context.Context, *log2.Log, tele_config.Config, []string, Handler) error { return nil }
func (stub) Close()                                                                       {}

func clientID(c *tele_config.Config) string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return DefaultClientID
}
