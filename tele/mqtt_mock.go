package tele

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

// MqttMock is in-memory paho client. Connect() calls OnConnect handler synchronously.
type MqttMock struct {
	sync.Mutex
	Opt       *mqtt.ClientOptions
	subs      []MockSub
	connected bool
}
type MockSub struct {
	Pattern string
	Qos     byte
	Handler mqtt.MessageHandler
}

func NewMqttMock() *MqttMock {
	return &MqttMock{subs: make([]MockSub, 0, 16)}
}

func (self *MqttMock) MockNew(opt *mqtt.ClientOptions) {
	self.Opt = opt
}

// Subs returns copy of current subscriptions.
func (self *MqttMock) Subs() []MockSub {
	self.Lock()
	defer self.Unlock()
	return append([]MockSub(nil), self.subs...)
}

// TestPublish delivers message to exact-match subscription or default handler.
func (self *MqttMock) TestPublish(t testing.TB, topic string, payload []byte) {
	msg := MockMsg{T: topic, P: payload}
	for _, sub := range self.Subs() {
		if topic == sub.Pattern {
			handler := sub.Handler
			if handler == nil {
				handler = self.Opt.DefaultPublishHandler
			}
			handler(self, msg)
			return
		}
	}
	t.Errorf("not subscribed for topic=%s", topic)
}

// TestConnectionLost simulates broker disconnect, subscriptions are forgotten.
func (self *MqttMock) TestConnectionLost(err error) {
	self.Lock()
	self.connected = false
	self.subs = self.subs[:0]
	self.Unlock()
	if self.Opt.OnConnectionLost != nil {
		self.Opt.OnConnectionLost(self, err)
	}
}

func (self *MqttMock) Disconnect(uint) {
	self.Lock()
	self.connected = false
	self.Unlock()
}
func (self *MqttMock) IsConnected() bool {
	self.Lock()
	defer self.Unlock()
	return self.connected
}
func (self *MqttMock) IsConnectionOpen() bool { return self.IsConnected() }

func (self *MqttMock) Connect() mqtt.Token {
	self.Lock()
	self.connected = true
	self.Unlock()
	if self.Opt != nil && self.Opt.OnConnect != nil {
		self.Opt.OnConnect(self)
	}
	return mockToken{nil}
}

func (self *MqttMock) Publish(topic string, qos byte, retain bool, payload interface{}) mqtt.Token {
	return mockToken{errors.NotSupportedf("mock publish")}
}

func (self *MqttMock) Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) mqtt.Token {
	self.Lock()
	defer self.Unlock()
	self.subs = append(self.subs, MockSub{pattern, qos, handler})
	return mockToken{nil}
}

func (self *MqttMock) SubscribeMultiple(filters map[string]byte, handler mqtt.MessageHandler) mqtt.Token {
	self.Lock()
	defer self.Unlock()
	for pattern, qos := range filters {
		self.subs = append(self.subs, MockSub{pattern, qos, handler})
	}
	return mockToken{nil}
}

func (self *MqttMock) AddRoute(string, mqtt.MessageHandler) { panic("not implemented") }

func (self *MqttMock) OptionsReader() mqtt.ClientOptionsReader {
	panic("not implemented")
}

func (self *MqttMock) Unsubscribe(...string) mqtt.Token { panic("not implemented") }

type mockToken struct{ error }

var closedChan = func() chan struct{} { ch := make(chan struct{}); close(ch); return ch }()

func (tok mockToken) Error() error                   { return tok.error }
func (tok mockToken) Wait() bool                     { return !errors.IsTimeout(tok.error) }
func (tok mockToken) WaitTimeout(time.Duration) bool { return !errors.IsTimeout(tok.error) }
func (tok mockToken) Done() <-chan struct{}          { return closedChan }

type MockMsg struct {
	T string
	P []byte
}

func (msg MockMsg) Ack()              {}
func (msg MockMsg) Duplicate() bool   { return false }
func (msg MockMsg) MessageID() uint16 { return 0 }
func (msg MockMsg) Payload() []byte   { return msg.P }
func (msg MockMsg) Qos() byte         { return 0 }
func (msg MockMsg) Retained() bool    { return false }
func (msg MockMsg) Topic() string     { return msg.T }

type contextKey string

const mqttMockContextKey contextKey = "tele/mqtt-mock"

// ContextWithMqttMock makes paho transport Init use m instead of network client.
func ContextWithMqttMock(ctx context.Context, m *MqttMock) context.Context {
	return context.WithValue(ctx, mqttMockContextKey, m)
}
