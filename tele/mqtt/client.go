// Package mqtt is a small subscribe-only MQTT 3.1.1 client over 256dpi/gomqtt packets and transport.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/256dpi/gomqtt/client"
	"github.com/256dpi/gomqtt/client/future"
	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/helpers/atomic_clock"
	"github.com/tsclock/tsclock/log2"
)

const DefaultNetworkTimeout = 30 * time.Second
const DefaultReconnectDelay = 5 * time.Second

var ErrClientClosing = fmt.Errorf("MQTT client is closing")

type ClientOptions struct {
	BrokerURL      string
	TLS            *tls.Config
	ReconnectDelay time.Duration
	NetworkTimeout time.Duration
	KeepaliveSec   uint16
	ClientID       string
	Username       string
	Password       string
	Subscriptions  []packet.Subscription
	Log            *log2.Log

	// OnMessage is called from single reader goroutine, in order of arrival.
	// Error closes connection.
	OnMessage func(*packet.Message) error
	// OnReady is called after every successful CONNACK+SUBACK.
	OnReady func()

	conpkt *packet.Connect
	dialer *transport.Dialer
}

// Client keeps one subscribing connection to broker.
// - NewClient() returns only configuration errors, network IO is done in background
// - clean session, subscribe right after connect, no unsubscribe
// - unlimited reconnect attempts with ReconnectDelay until Close()
// - incoming QOS 0,1
type Client struct {
	sync.Mutex

	alive   *alive.Alive
	current *session
	lastID  uint32
	opt     ClientOptions
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.OnMessage == nil {
		return nil, errors.NotValidf("code error mqtt.ClientOptions.OnMessage=nil")
	}
	if opt.NetworkTimeout == 0 {
		opt.NetworkTimeout = DefaultNetworkTimeout
	}
	if opt.ReconnectDelay == 0 {
		opt.ReconnectDelay = DefaultReconnectDelay
	}
	if u, err := url.ParseRequestURI(opt.BrokerURL); err != nil {
		return nil, errors.Annotatef(err, "config error mqtt BrokerURL=%s", opt.BrokerURL)
	} else if u.User != nil && opt.Username == "" && opt.Password == "" {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}
	opt.conpkt = packet.NewConnect()
	opt.conpkt.ClientID = defaultString(opt.ClientID, opt.Username)
	opt.conpkt.KeepAlive = opt.KeepaliveSec
	opt.conpkt.CleanSession = true
	opt.conpkt.Username = opt.Username
	opt.conpkt.Password = opt.Password
	opt.dialer = transport.NewDialer(transport.DialConfig{
		TLSConfig: opt.TLS,
		Timeout:   opt.NetworkTimeout,
	})

	c := &Client{
		alive:  alive.NewAlive(),
		lastID: uint32(time.Now().UnixNano()),
		opt:    opt,
	}
	_ = c.session(true)

	go c.worker()
	return c, nil
}

func (c *Client) Close() error {
	err := ErrClientClosing
	if s := c.session(false); s != nil {
		_ = s.send(packet.NewDisconnect())
		err = s.die(ErrClientClosing)
	}
	c.alive.Stop()
	c.alive.Wait()
	return err
}

// WaitReady returns, in this order:
// - ErrClientClosing if client stopped with Close()
// - nil if connected and subscribed within context limit
// - context.Canceled if context canceled/expired before successful connection
func (c *Client) WaitReady(ctx context.Context) error {
	donech := ctx.Done()
	stopch := c.alive.StopChan()
	for {
		s := c.session(false)
		if s == nil {
			select {
			case <-time.After(100 * time.Millisecond):
				continue

			case <-donech:
				return context.Canceled

			case <-stopch:
				return ErrClientClosing
			}
		}

		switch s.waitReady(ctx) {
		case nil:
			return nil

		case context.Canceled:
			return context.Canceled

		case ErrClientClosing: // session lost, next one will be created by worker
		}
	}
}

func (c *Client) session(create bool) *session {
	c.Lock()
	defer c.Unlock()
	if !c.alive.IsRunning() {
		return nil
	}
	if c.current != nil && !c.current.alive.IsRunning() {
		c.current = nil
	}
	if c.current == nil && create {
		var subpkt *packet.Subscribe
		if len(c.opt.Subscriptions) != 0 {
			subpkt = &packet.Subscribe{
				ID:            c.nextID(),
				Subscriptions: c.opt.Subscriptions,
			}
		}
		c.current = newSession(c.opt, subpkt, c.onPublish)
	}
	return c.current
}

func (c *Client) nextID() packet.ID {
	u32 := atomic.AddUint32(&c.lastID, 1)
	id := packet.ID(u32 % (1 << 16))
	if id == 0 {
		id = 1
	}
	return id
}

func (c *Client) onPublish(s *session, publish *packet.Publish) {
	msg := &publish.Message
	switch msg.QOS {
	case packet.QOSAtMostOnce, packet.QOSAtLeastOnce:
	default:
		_ = s.die(errors.NotSupportedf("incoming qos=%d", msg.QOS))
		return
	}

	if err := c.opt.OnMessage(msg); err != nil {
		c.opt.Log.Errorf("mqtt onMessage %s err=%v", MessageString(msg), err)
		_ = s.die(err)
		return
	}

	if msg.QOS == packet.QOSAtLeastOnce {
		puback := packet.NewPuback()
		puback.ID = publish.ID
		_ = s.send(puback)
	}
}

func (c *Client) worker() {
	stopch := c.alive.StopChan()
	for {
		s := c.session(true)
		if s == nil {
			return
		}
		select {
		case <-s.alive.WaitChan():

		case <-stopch:
			_ = s.die(ErrClientClosing)
			return
		}

		c.opt.Log.Debugf("mqtt reconnect in %v", c.opt.ReconnectDelay)
		select {
		case <-time.After(c.opt.ReconnectDelay):

		case <-stopch:
			return
		}
	}
}

// session is one network connection: CONNECT, SUBSCRIBE, pings, incoming PUBLISH.
// State is set once at creation, except transport.Conn which requires blocking Dial.
type session struct {
	alive      *alive.Alive
	closed     uint32
	connected  *future.Future
	conn       atomic.Value // transport.Conn
	onPublish  func(*session, *packet.Publish)
	opt        ClientOptions
	sentAt     *atomic_clock.Clock // last outgoing packet
	pongAt     *atomic_clock.Clock // last PINGRESP or CONNACK
	subpkt     *packet.Subscribe
	subscribed *future.Future
}

func newSession(opt ClientOptions, subpkt *packet.Subscribe, onPublish func(*session, *packet.Publish)) *session {
	s := &session{
		alive:      alive.NewAlive(),
		connected:  future.New(),
		onPublish:  onPublish,
		opt:        opt,
		sentAt:     atomic_clock.New(0),
		pongAt:     atomic_clock.New(0),
		subpkt:     subpkt,
		subscribed: future.New(),
	}
	s.alive.Add(1)
	go s.connect()
	return s
}

func (s *session) die(e error) error {
	if e == nil {
		e = ErrClientClosing
	}
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return e
	}
	if e != ErrClientClosing {
		s.opt.Log.Errorf("mqtt session err=%v", e)
	}
	s.alive.Stop()
	s.connected.Cancel(e)
	s.subscribed.Cancel(e)
	if conn := s.getConn(); conn != nil {
		_ = conn.Close()
	}
	return e
}

func (s *session) getConn() transport.Conn {
	if x := s.conn.Load(); x != nil {
		return x.(transport.Conn)
	}
	return nil
}

// dial, send CONNECT, wait CONNACK, start pinger, reader and subscriber
func (s *session) connect() {
	defer s.alive.Done()

	conn, err := s.opt.dialer.Dial(s.opt.BrokerURL)
	if err != nil {
		_ = s.die(errors.Annotatef(err, "connect: dial broker=%s", s.opt.BrokerURL))
		return
	}
	s.conn.Store(conn)
	if err = s.send(s.opt.conpkt); err != nil {
		return
	}

	conn.SetReadTimeout(s.opt.NetworkTimeout)
	pkt, err := conn.Receive()
	if err != nil {
		_ = s.die(errors.Annotate(err, "connect: expect CONNACK"))
		return
	}
	connack, ok := pkt.(*packet.Connack)
	if !ok {
		_ = s.die(errors.Annotatef(client.ErrClientExpectedConnack, "connect: server error pkt=%s", PacketString(pkt)))
		return
	}
	s.opt.Log.Debugf("mqtt %s", connack.String())
	if connack.ReturnCode != packet.ConnectionAccepted {
		_ = s.die(errors.Annotate(client.ErrClientConnectionDenied, connack.ReturnCode.String()))
		return
	}
	s.connected.Complete(true)
	conn.SetReadTimeout(0)

	if !s.alive.Add(3) {
		_ = s.die(context.Canceled)
		return
	}
	s.pongAt.SetNow()
	go s.pinger()
	go s.reader()
	go s.subscriber()
}

func (s *session) onSuback(suback *packet.Suback) {
	if s.subpkt == nil || suback.ID != s.subpkt.ID {
		_ = s.die(errors.Annotatef(client.ErrFailedSubscription, "unexpected SUBACK id=%d", suback.ID))
		return
	}
	for _, code := range suback.ReturnCodes {
		if code == packet.QOSFailure {
			_ = s.die(client.ErrFailedSubscription)
			return
		}
	}
	s.subscribed.Complete(true)
}

// PINGREQ is only sent if Keepalive-NetworkTimeout has passed since last outgoing packet.
func (s *session) pinger() {
	defer s.alive.Done()
	if s.opt.KeepaliveSec == 0 {
		return
	}

	// [MQTT-3.1.2-24] control packets must arrive at most KeepaliveSec*1.5 apart.
	keepalive := keepaliveAndHalf(s.opt.KeepaliveSec)
	interval := keepalive - s.opt.NetworkTimeout
	if interval <= 0 {
		interval = keepalive / 2
	}
	stopch := s.alive.StopChan()
	for s.alive.IsRunning() {
		now := atomic_clock.Now()
		window := now.Sub(s.sentAt)
		sincePong := now.Sub(s.pongAt)

		if sincePong > keepalive {
			_ = s.die(client.ErrClientMissingPong)
			return
		}
		if window >= interval {
			if err := s.send(packet.NewPingreq()); err != nil {
				return
			}
			window = 0
		}

		select {
		case <-time.After(interval - window):
		case <-stopch:
			return
		}
	}
}

func (s *session) reader() {
	defer s.alive.Done()

	conn := s.getConn()
	for {
		pkt, err := conn.Receive()
		if !s.alive.IsRunning() {
			return
		}
		switch err {
		case nil:

		case io.EOF:
			_ = s.die(errors.Errorf("server closed connection"))
			return

		default:
			_ = s.die(errors.Annotate(err, "receive"))
			return
		}
		s.opt.Log.Debugf("mqtt received=%s", PacketString(pkt))

		switch pt := pkt.(type) {
		case *packet.Connack:
			_ = s.die(errors.Errorf("server error duplicate CONNACK pkt=%s", PacketString(pkt)))
			return

		case *packet.Pingresp:
			s.pongAt.SetNow()

		case *packet.Suback:
			s.onSuback(pt)

		case *packet.Publish:
			s.onPublish(s, pt)

		default:
			s.opt.Log.Debugf("mqtt unexpected packet %s", PacketString(pkt))
		}
	}
}

func (s *session) send(p packet.Generic) error {
	conn := s.getConn()
	if conn == nil {
		return client.ErrClientNotConnected
	}
	if err := conn.Send(p, false); err != nil {
		return s.die(errors.Annotatef(err, "send %s", p.Type().String()))
	}
	s.sentAt.SetNow()
	s.opt.Log.Debugf("mqtt sent %s", PacketString(p))
	return nil
}

func (s *session) subscriber() {
	defer s.alive.Done()
	if s.subpkt == nil {
		s.subscribed.Complete(true)
	} else if err := s.send(s.subpkt); err != nil {
		return
	}

	switch s.subscribed.Wait(s.opt.NetworkTimeout) {
	case nil:
		if s.opt.OnReady != nil && s.alive.IsRunning() {
			s.opt.OnReady()
		}

	case future.ErrTimeout:
		_ = s.die(errors.Timeoutf("subscribe"))
	}
}

// waitReady returns, in this order:
// - ErrClientClosing if session is in final invalid state
// - nil if connected and subscribed within context limit
// - context.Canceled if context canceled/expired before successful connection
func (s *session) waitReady(ctx context.Context) error {
	pollInterval := 100 * time.Millisecond
	donech := ctx.Done()
	for {
		if !s.alive.IsRunning() {
			return ErrClientClosing
		}
		connected, _ := s.connected.Result().(bool)
		subscribed, _ := s.subscribed.Result().(bool)
		if connected && subscribed {
			return nil
		}

		select {
		case <-time.After(pollInterval):

		case <-donech:
			return context.Canceled
		}
	}
}
