package tele

import (
	"context"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/helpers"
	"github.com/tsclock/tsclock/log2"
	tele_config "github.com/tsclock/tsclock/tele/config"
	tele_mqtt "github.com/tsclock/tsclock/tele/mqtt"
)

type transportGomqtt struct {
	log *log2.Log
	c   *tele_mqtt.Client
}

func (self *transportGomqtt) Init(ctx context.Context, log *log2.Log, c tele_config.Config, topics []string, h Handler) error {
	self.log = log
	if len(topics) == 0 {
		return errors.NotValidf("mqtt topics empty")
	}
	tlsconf, err := c.TLSConfig()
	if err != nil {
		return errors.Trace(err)
	}
	mlog := log.Clone(log2.LInfo)
	if c.LogDebug {
		mlog.SetLevel(log2.LDebug)
	}
	opt := tele_mqtt.ClientOptions{
		BrokerURL:      c.Broker,
		TLS:            tlsconf,
		ReconnectDelay: helpers.IntSecondDefault(c.ReconnectSec, defaultReconnectSec*time.Second),
		NetworkTimeout: helpers.IntSecondDefault(c.NetworkTimeoutSec, defaultNetTimeoutSec*time.Second),
		KeepaliveSec:   uint16(helpers.IntSecondDefault(c.KeepaliveSec, defaultKeepaliveSec*time.Second) / time.Second),
		ClientID:       clientID(&c),
		Username:       c.Username,
		Password:       c.Password,
		Subscriptions:  tele_mqtt.Subscriptions(topics),
		Log:            mlog,
		OnMessage: func(m *packet.Message) error {
			h.Deliver(m.Topic, m.Payload)
			return nil
		},
		OnReady: func() {
			log.Infof("mqtt subscribed topics=%d", len(topics))
			h.Connected()
		},
	}
	self.c, err = tele_mqtt.NewClient(opt)
	if err != nil {
		return errors.Annotate(err, "mqtt")
	}
	log.Infof("mqtt connect broker=%s client_id=%s", c.Broker, opt.ClientID)
	return nil
}

func (self *transportGomqtt) Close() {
	if self.c == nil {
		return
	}
	self.log.Infof("mqtt disconnect")
	_ = self.c.Close()
}
