package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotApply(t *testing.T) {
	t.Parallel()

	type Case struct {
		name   string
		before Snapshot
		event  Event
		after  Snapshot
		effect Effect
	}
	cases := []Case{
		{"started/no-mutation", Snapshot{60, 120, 180}, SessionStarted{"ETS2", 5}, Snapshot{60, 120, 180}, EffectWelcome},
		{"ended/reset", Snapshot{60, 120, 180}, SessionEnded{}, Snapshot{}, EffectEnded},
		{"time", Snapshot{0, 3600, 0}, GameTimeUpdated{60}, Snapshot{3600, 3600, 0}, EffectTime | EffectEta | EffectRestStop},
		{"distance", Snapshot{1, 2, 3}, DistanceUpdated{1500}, Snapshot{1, 2, 3}, EffectDistance},
		{"eta", Snapshot{}, EtaUpdated{7200}, Snapshot{0, 7200, 0}, EffectEta},
		{"rest", Snapshot{}, RestStopUpdated{90}, Snapshot{0, 0, 5400}, EffectRestStop},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			s := c.before
			effect := s.Apply(c.event)
			assert.Equal(t, c.after, s)
			assert.Equal(t, c.effect, effect, effect.String())
		})
	}
}

func TestSnapshotCascade(t *testing.T) {
	t.Parallel()

	var s Snapshot
	s.Apply(EtaUpdated{Seconds: 3600})
	s.Apply(RestStopUpdated{Minutes: 30})
	assert.Equal(t, "01h00m MON 01:00", s.EtaText())

	effect := s.Apply(GameTimeUpdated{Minutes: 60})
	require.True(t, effect.Has(EffectEta))
	require.True(t, effect.Has(EffectRestStop))
	assert.Equal(t, uint32(3600), s.CurrentTime)
	assert.Equal(t, "MON 01:00", s.TimeText())
	assert.Equal(t, "01h00m MON 02:00", s.EtaText())
	assert.Equal(t, "00h30m MON 01:30", s.RestStopText())
}

func TestSnapshotIdempotentTime(t *testing.T) {
	t.Parallel()

	var once, twice Snapshot
	e1 := once.Apply(GameTimeUpdated{0})
	twice.Apply(GameTimeUpdated{0})
	e2 := twice.Apply(GameTimeUpdated{0})
	assert.Equal(t, once, twice)
	assert.Equal(t, e1, e2)
	assert.Equal(t, once.TimeText(), twice.TimeText())
	assert.Equal(t, once.EtaText(), twice.EtaText())
}

func TestSnapshotEndedAlwaysResets(t *testing.T) {
	t.Parallel()

	for _, s := range []Snapshot{{}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1<<32 - 1, 1<<32 - 1, 1<<32 - 1}} {
		s.Apply(SessionEnded{})
		assert.Equal(t, Snapshot{}, s)
	}
}

func TestSnapshotMalformedUnchanged(t *testing.T) {
	t.Parallel()

	r, err := NewRouter(DefaultTopics())
	require.NoError(t, err)
	deliver := func(s *Snapshot, topic, payload string) error {
		e, err := r.Route(topic, []byte(payload))
		if err == nil {
			s.Apply(e)
		}
		return err
	}

	s := Snapshot{CurrentTime: 600, PendingEta: 120, PendingRestStop: 5400}
	before := s
	for _, topic := range DefaultTopics().List() {
		for _, payload := range []string{"\x00\xff garbage", "", "[1]", `{"value":`} {
			assert.Error(t, deliver(&s, topic, payload), "topic=%s payload=%q", topic, payload)
		}
	}
	assert.Error(t, deliver(&s, "telemetry/channel/speed", `{"value":1}`))
	assert.Equal(t, before, s)

	// same path with good payload does change state
	require.NoError(t, deliver(&s, DefaultTopics().Topic(ChannelEta), `{"value":60}`))
	assert.Equal(t, uint32(60), s.PendingEta)
}

func TestEffectString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", EffectNone.String())
	assert.Equal(t, "time|eta|rest-stop", (EffectTime | EffectEta | EffectRestStop).String())
}
