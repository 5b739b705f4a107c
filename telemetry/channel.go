package telemetry

import (
	"fmt"

	"github.com/juju/errors"
)

// Channel is one of fixed telemetry topics.
type Channel uint8

const (
	ChannelInvalid Channel = iota
	ChannelGameInfo
	ChannelGameTime
	ChannelDistance
	ChannelEta
	ChannelRestStop
	channelCount
)

var channelNames = [channelCount]string{
	ChannelInvalid:  "invalid",
	ChannelGameInfo: "game-info",
	ChannelGameTime: "game-time",
	ChannelDistance: "distance",
	ChannelEta:      "eta",
	ChannelRestStop: "rest-stop",
}

func (c Channel) String() string {
	if c < channelCount {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", c)
}

func (c Channel) Valid() bool { return c > ChannelInvalid && c < channelCount }

// Channels lists valid channels in subscription order.
func Channels() []Channel {
	return []Channel{ChannelGameInfo, ChannelGameTime, ChannelDistance, ChannelEta, ChannelRestStop}
}

func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels() {
		if channelNames[c] == s {
			return c, nil
		}
	}
	return ChannelInvalid, errors.NotValidf("channel=%s", s)
}

// Topics maps each channel to exact bus topic. No wildcards.
type Topics [channelCount]string

// DefaultTopics is the telemetry/... topic set.
func DefaultTopics() Topics {
	return Topics{
		ChannelGameInfo: "telemetry/session-info",
		ChannelGameTime: "telemetry/channel/time",
		ChannelDistance: "telemetry/channel/distance",
		ChannelEta:      "telemetry/channel/eta",
		ChannelRestStop: "telemetry/channel/rest-stop",
	}
}

// TrucksimTopics is the topic set published by trucksim telemetry bridge.
func TrucksimTopics() Topics {
	return Topics{
		ChannelGameInfo: "trucksim/gameinfo",
		ChannelGameTime: "trucksim/channel/game/time",
		ChannelDistance: "trucksim/channel/truck/navigation/distance",
		ChannelEta:      "trucksim/channel/truck/navigation/time",
		ChannelRestStop: "trucksim/channel/rest/stop",
	}
}

func TopicSet(name string) (Topics, error) {
	switch name {
	case "", "default":
		return DefaultTopics(), nil
	case "trucksim":
		return TrucksimTopics(), nil
	}
	return Topics{}, errors.NotValidf("topic_set=%s (expected default|trucksim)", name)
}

func (t Topics) Topic(c Channel) string {
	if !c.Valid() {
		return ""
	}
	return t[c]
}

func (t *Topics) Set(c Channel, topic string) {
	if !c.Valid() {
		panic(fmt.Sprintf("code error Topics.Set channel=%v", c))
	}
	t[c] = topic
}

// Match returns ChannelInvalid,false for unknown topic.
func (t Topics) Match(topic string) (Channel, bool) {
	if topic == "" {
		return ChannelInvalid, false
	}
	for _, c := range Channels() {
		if t[c] == topic {
			return c, true
		}
	}
	return ChannelInvalid, false
}

// Validate ensures every channel has unique non-empty topic.
func (t Topics) Validate() error {
	seen := make(map[string]Channel, channelCount)
	for _, c := range Channels() {
		topic := t[c]
		if topic == "" {
			return errors.NotValidf("topic for channel=%s empty", c)
		}
		if prev, ok := seen[topic]; ok {
			return errors.NotValidf("topic=%s used by channels %s and %s", topic, prev, c)
		}
		seen[topic] = c
	}
	return nil
}

// List in Channels() order, for subscription.
func (t Topics) List() []string {
	cs := Channels()
	ss := make([]string, len(cs))
	for i, c := range cs {
		ss[i] = t[c]
	}
	return ss
}
