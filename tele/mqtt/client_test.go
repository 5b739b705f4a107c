package mqtt

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/log2"
)

func TestClient(t *testing.T) {
	t.Parallel()
	const timeout = 5 * time.Second

	type tenv struct {
		alive    *alive.Alive
		opts     ClientOptions
		messages chan *packet.Message
		ready    chan struct{}
	}
	cases := []struct {
		name   string
		subs   []string
		client func(t testing.TB, env *tenv)
		server func(t testing.TB, env *tenv, b *transport.NetConn)
	}{
		{"connect", nil, func(t testing.TB, env *tenv) {
			mc, err := NewClient(env.opts)
			require.NoError(t, err)
			defer mc.Close()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			require.NoError(t, mc.WaitReady(ctx))
			<-env.ready
		}, func(t testing.TB, env *tenv, b *transport.NetConn) {
			defer env.alive.Done()
			pkt, err := b.Receive()
			require.NoError(t, err)
			connect, ok := pkt.(*packet.Connect)
			require.True(t, ok, pkt.String())
			assert.Equal(t, "tsclock-test", connect.ClientID)
			assert.True(t, connect.CleanSession)
			require.NoError(t, b.Send(&packet.Connack{ReturnCode: packet.ConnectionAccepted}, false))
		}},

		{"subscribe-publish", []string{"telemetry/channel/time", " ", "telemetry/channel/eta"}, func(t testing.TB, env *tenv) {
			mc, err := NewClient(env.opts)
			require.NoError(t, err)
			defer mc.Close()
			<-env.ready
			m1 := <-env.messages
			assert.Equal(t, "telemetry/channel/time", m1.Topic)
			assert.Equal(t, `{"value":60}`, string(m1.Payload))
			m2 := <-env.messages
			assert.Equal(t, "telemetry/channel/eta", m2.Topic)
			assert.Equal(t, packet.QOSAtLeastOnce, m2.QOS)
		}, func(t testing.TB, env *tenv, b *transport.NetConn) {
			defer env.alive.Done()
			_, err := b.Receive()
			require.NoError(t, err)
			require.NoError(t, b.Send(&packet.Connack{ReturnCode: packet.ConnectionAccepted}, false))

			pkt, err := b.Receive()
			require.NoError(t, err)
			sub, ok := pkt.(*packet.Subscribe)
			require.True(t, ok, pkt.String())
			require.Len(t, sub.Subscriptions, 2)
			assert.Equal(t, "telemetry/channel/eta", sub.Subscriptions[1].Topic)
			require.NoError(t, b.Send(&packet.Suback{ID: sub.ID, ReturnCodes: []packet.QOS{0, 0}}, false))

			pub := packet.NewPublish()
			pub.Message = packet.Message{Topic: "telemetry/channel/time", Payload: []byte(`{"value":60}`)}
			require.NoError(t, b.Send(pub, false))

			pub = packet.NewPublish()
			pub.ID = 7
			pub.Message = packet.Message{Topic: "telemetry/channel/eta", Payload: []byte(`{"value":3600}`), QOS: packet.QOSAtLeastOnce}
			require.NoError(t, b.Send(pub, false))
			pkt, err = b.Receive()
			require.NoError(t, err)
			puback, ok := pkt.(*packet.Puback)
			require.True(t, ok, pkt.String())
			assert.Equal(t, packet.ID(7), puback.ID)
		}},

		{"denied", nil, func(t testing.TB, env *tenv) {
			mc, err := NewClient(env.opts)
			require.NoError(t, err)
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			assert.Equal(t, context.Canceled, mc.WaitReady(ctx))
			assert.Equal(t, ErrClientClosing, mc.Close())
			assert.Equal(t, ErrClientClosing, mc.WaitReady(context.Background()))
		}, func(t testing.TB, env *tenv, b *transport.NetConn) {
			defer env.alive.Done()
			if _, err := b.Receive(); err != nil {
				return
			}
			_ = b.Send(&packet.Connack{ReturnCode: packet.NotAuthorized}, false)
		}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			env := &tenv{
				alive:    alive.NewAlive(),
				messages: make(chan *packet.Message, 8),
				ready:    make(chan struct{}, 8),
			}
			ln, err := net.Listen("tcp", "127.0.0.1:")
			require.NoError(t, err)
			env.opts.BrokerURL = fmt.Sprintf("tcp://%s", ln.Addr().String())
			env.opts.ClientID = "tsclock-test"
			env.opts.Subscriptions = Subscriptions(c.subs)
			env.opts.ReconnectDelay = 50 * time.Millisecond
			env.opts.OnMessage = func(m *packet.Message) error {
				env.messages <- m
				return nil
			}
			env.opts.OnReady = func() { env.ready <- struct{}{} }
			env.opts.Log = log2.NewStderr(log2.LDebug)
			env.opts.NetworkTimeout = timeout
			env.alive.Add(1)
			go func() {
				defer env.alive.Done()
				for {
					conn, err := ln.Accept()
					if err != nil || !env.alive.Add(1) {
						return
					}
					_ = conn.SetDeadline(time.Now().Add(timeout))
					c.server(t, env, transport.NewNetConn(conn))
				}
			}()
			c.client(t, env)
			env.alive.Stop()
			_ = ln.Close()
			env.alive.Wait()
		})
	}
}

func TestMessageString(t *testing.T) {
	t.Parallel()
	m := &packet.Message{Topic: "a", Payload: []byte(`{"value":1}`)}
	assert.Equal(t, `Topic="a" QOS=0 Retain=false Payload="{\"value\":1}"`, MessageString(m))
	m.Payload = []byte(strings.Repeat("x", 100))
	assert.True(t, strings.HasSuffix(MessageString(m), `"...`))
	assert.Equal(t, "message=nil", MessageString(nil))
	assert.Equal(t, "(nil)", PacketString(nil))
}
