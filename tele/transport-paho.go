package tele

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/helpers"
	"github.com/tsclock/tsclock/log2"
	tele_config "github.com/tsclock/tsclock/tele/config"
)

type transportPaho struct {
	log     *log2.Log
	h       Handler
	m       mqtt.Client
	mopt    *mqtt.ClientOptions
	filters map[string]byte
	timeout time.Duration
}

func (self *transportPaho) Init(ctx context.Context, log *log2.Log, c tele_config.Config, topics []string, h Handler) error {
	self.log = log
	self.h = h
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log
	if c.LogDebug {
		mqtt.DEBUG = log
	}

	if c.Broker == "" {
		return errors.NotValidf("mqtt broker empty")
	}
	if len(topics) == 0 {
		return errors.NotValidf("mqtt topics empty")
	}
	self.filters = make(map[string]byte, len(topics))
	for _, t := range topics {
		self.filters[t] = 0
	}
	tlsconf, err := c.TLSConfig()
	if err != nil {
		return errors.Trace(err)
	}
	keepAlive := helpers.IntSecondDefault(c.KeepaliveSec, defaultKeepaliveSec*time.Second)
	self.timeout = helpers.IntSecondDefault(c.NetworkTimeoutSec, defaultNetTimeoutSec*time.Second)
	retryInterval := helpers.IntSecondDefault(c.ReconnectSec, defaultReconnectSec*time.Second)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(clientID(&c)).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetPingTimeout(self.timeout).
		SetConnectTimeout(self.timeout).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(retryInterval).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetDefaultPublishHandler(self.messageHandler).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	if tlsconf != nil {
		self.mopt.SetTLSConfig(tlsconf)
	}
	self.m = newPahoClient(ctx, self.mopt)
	self.log.Infof("mqtt connect broker=%s client_id=%s", c.Broker, self.mopt.ClientID)
	// with ConnectRetry token completes only after success, errors are logged by paho
	_ = self.m.Connect()
	return nil
}

func (self *transportPaho) Close() {
	if self.m == nil {
		return
	}
	self.log.Infof("mqtt disconnect")
	self.m.Disconnect(disconnectQuiesceMsec)
}

func (self *transportPaho) messageHandler(c mqtt.Client, msg mqtt.Message) {
	self.log.Debugf("mqtt message topic=%s payload=%s", msg.Topic(), msg.Payload())
	self.h.Deliver(msg.Topic(), msg.Payload())
}

func (self *transportPaho) connectLostHandler(c mqtt.Client, err error) {
	self.log.Errorf("mqtt connection lost err=%v", err)
}

func (self *transportPaho) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connected")
	token := c.SubscribeMultiple(self.filters, self.messageHandler)
	if !token.WaitTimeout(self.timeout) {
		self.log.Errorf("mqtt subscribe timeout")
		return
	}
	if err := token.Error(); err != nil {
		self.log.Errorf("mqtt subscribe err=%v", err)
		return
	}
	self.log.Infof("mqtt subscribed topics=%d", len(self.filters))
	self.h.Connected()
}

func newPahoClient(ctx context.Context, opt *mqtt.ClientOptions) mqtt.Client {
	if m, ok := ctx.Value(mqttMockContextKey).(*MqttMock); ok {
		m.MockNew(opt)
		return m
	}
	return mqtt.NewClient(opt)
}
