package telemetry

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	t.Parallel()

	topics := TrucksimTopics()
	r, err := NewRouter(topics)
	require.NoError(t, err)

	type Case struct {
		name    string
		channel Channel
		payload string
		expect  Event
	}
	cases := []Case{
		{"started", ChannelGameInfo, `{"game_id":"ETS2","game_version":5}`, SessionStarted{SessionID: "ETS2", Version: 5}},
		{"started/no-version", ChannelGameInfo, `{"game_id":"ATS"}`, SessionStarted{SessionID: "ATS"}},
		{"started/empty-id", ChannelGameInfo, `{"game_id":"","game_version":1}`, SessionStarted{Version: 1}},
		{"ended/null", ChannelGameInfo, `{"game_id":null,"game_version":5}`, SessionEnded{}},
		{"ended/absent", ChannelGameInfo, `{}`, SessionEnded{}},
		{"ended/number-id", ChannelGameInfo, `{"game_id":12}`, SessionEnded{}},
		{"time", ChannelGameTime, `{"value":600}`, GameTimeUpdated{Minutes: 600}},
		{"time/fraction", ChannelGameTime, `{"value":61.9}`, GameTimeUpdated{Minutes: 61}},
		{"time/absent", ChannelGameTime, `{"other":1}`, GameTimeUpdated{}},
		{"time/negative", ChannelGameTime, `{"value":-5}`, GameTimeUpdated{}},
		{"time/string", ChannelGameTime, `{"value":"90"}`, GameTimeUpdated{}},
		{"time/too-big", ChannelGameTime, `{"value":1e12}`, GameTimeUpdated{}},
		{"distance", ChannelDistance, `{"value":1500.0}`, DistanceUpdated{Meters: 1500}},
		{"distance/null", ChannelDistance, `{"value":null}`, DistanceUpdated{}},
		{"eta", ChannelEta, `{"value":3600}`, EtaUpdated{Seconds: 3600}},
		{"rest", ChannelRestStop, `{"value":90}`, RestStopUpdated{Minutes: 90}},
		{"rest/bool", ChannelRestStop, `{"value":true}`, RestStopUpdated{}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			e, err := r.Route(topics.Topic(c.channel), []byte(c.payload))
			require.NoError(t, err)
			assert.Equal(t, c.expect, e)
			assert.Equal(t, c.channel, e.Channel())
		})
	}
}

func TestRouteErrors(t *testing.T) {
	t.Parallel()

	r, err := NewRouter(DefaultTopics())
	require.NoError(t, err)

	_, err = r.Route("telemetry/channel/speed", []byte(`{"value":1}`))
	assert.True(t, errors.IsNotFound(err), errors.ErrorStack(err))
	_, err = r.Route("trucksim/gameinfo", []byte(`{"game_id":"ETS2"}`))
	assert.True(t, errors.IsNotFound(err), errors.ErrorStack(err))

	for _, payload := range []string{"", "   ", "{", "not json", "[1,2]", "42", `{"value":}`} {
		_, err = r.Route("telemetry/channel/eta", []byte(payload))
		assert.True(t, errors.IsNotValid(errors.Cause(err)), "payload=%q err=%v", payload, err)
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	topics := DefaultTopics()
	require.NoError(t, topics.Validate())
	c, ok := topics.Match("telemetry/channel/rest-stop")
	assert.True(t, ok)
	assert.Equal(t, ChannelRestStop, c)
	_, ok = topics.Match("")
	assert.False(t, ok)
	assert.Len(t, topics.List(), 5)

	for _, name := range []string{"", "default"} {
		set, err := TopicSet(name)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopics(), set)
	}
	trucksim, err := TopicSet("trucksim")
	require.NoError(t, err)
	assert.Equal(t, "trucksim/channel/rest/stop", trucksim.Topic(ChannelRestStop))
	assert.Equal(t, "telemetry/session-info", topics.Topic(ChannelGameInfo))
	assert.Equal(t, "telemetry/channel/time", topics.Topic(ChannelGameTime))
	assert.Equal(t, "telemetry/channel/distance", topics.Topic(ChannelDistance))
	assert.Equal(t, "telemetry/channel/eta", topics.Topic(ChannelEta))
	_, err = TopicSet("bogus")
	assert.True(t, errors.IsNotValid(err))

	dup := DefaultTopics()
	dup.Set(ChannelEta, dup.Topic(ChannelDistance))
	assert.Error(t, dup.Validate())
	_, err = NewRouter(dup)
	assert.Error(t, err)

	empty := DefaultTopics()
	empty.Set(ChannelGameTime, "")
	assert.Error(t, empty.Validate())

	assert.Equal(t, "", topics.Topic(ChannelInvalid))
	assert.Panics(t, func() { topics.Set(ChannelInvalid, "x") })
}

func TestParseChannel(t *testing.T) {
	t.Parallel()

	for _, c := range Channels() {
		parsed, err := ParseChannel(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseChannel("invalid")
	assert.Error(t, err)
	assert.Equal(t, "channel(42)", Channel(42).String())
}
