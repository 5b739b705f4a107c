package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsclock/tsclock/log2"
)

func newTestRenderer(t testing.TB) (*Renderer, *MockDisplay) {
	d := NewMockDisplay(DefaultWidth, DefaultRows)
	r, err := NewRenderer(d, log2.NewTest(t, log2.LDebug), DefaultLayout())
	require.NoError(t, err)
	return r, d
}

func grid(lines ...string) string {
	for i := range lines {
		lines[i] = PadRight(lines[i], DefaultWidth)
	}
	return strings.Join(lines, "\n")
}

func TestFrames(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		show   func(r *Renderer) error
		frame  Frame
		expect string
	}{
		{"waiting", (*Renderer).ShowWaiting, FrameWaiting,
			grid("Connected...", "Waiting for game...", "", "")},
		{"welcome", func(r *Renderer) error { return r.ShowWelcome("ETS2", 5) }, FrameWelcome,
			grid("TruckSim Clock", "Game: ETS2", "Version: 5", "")},
		{"welcome/empty-id", func(r *Renderer) error { return r.ShowWelcome("", 0) }, FrameWelcome,
			grid("TruckSim Clock", "Game: ", "Version: 0", "")},
		{"welcome/unicode-id", func(r *Renderer) error { return r.ShowWelcome("Škoda Trucks ČR Ž", 2) }, FrameWelcome,
			grid("TruckSim Clock", "Game: Škoda Trucks Č", "Version: 2", "")},
		{"welcome/long-id", func(r *Renderer) error { return r.ShowWelcome("Euro Truck Simulator 2", 1) }, FrameWelcome,
			grid("TruckSim Clock", "Game: Euro Truck Sim", "Version: 1", "")},
		{"telemetry/defaults", (*Renderer).ShowTelemetry, FrameTelemetry,
			grid("Time       MON 00:00", "Dist           0.0km", "ETA 00h00m MON 00:00", "RST 00h00m MON 00:00")},
		{"ended", (*Renderer).ShowEnded, FrameEnded,
			grid("Goodbye...", "", "", "")},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r, d := newTestRenderer(t)
			require.NoError(t, c.show(r))
			assert.Equal(t, c.frame, r.Frame())
			assert.Equal(t, c.expect, d.String())
		})
	}
}

func TestFieldHeldUntilTelemetry(t *testing.T) {
	t.Parallel()

	r, d := newTestRenderer(t)
	require.NoError(t, r.ShowWelcome("ETS2", 5))
	_, writesBefore := d.Counts()
	require.NoError(t, r.SetField(FieldDistance, FormatDistance(1.5)))
	_, writesAfter := d.Counts()
	assert.Equal(t, writesBefore, writesAfter, "field must not be drawn over welcome frame")
	assert.Equal(t, "Game: ETS2", strings.TrimSpace(d.Row(1)))

	require.NoError(t, r.ShowTelemetry())
	assert.Equal(t, "Dist           1.5km", d.Row(1))
}

func TestFieldRedraw(t *testing.T) {
	t.Parallel()

	r, d := newTestRenderer(t)
	require.NoError(t, r.ShowTelemetry())
	require.NoError(t, r.SetField(FieldEta, "100h01m TUE 04:01"))
	assert.Equal(t, "ETA 100h01m TUE 04:0", d.Row(2))
	require.NoError(t, r.SetField(FieldEta, "01h00m"))
	assert.Equal(t, "ETA 01h00m          ", d.Row(2))
	assert.Equal(t, "01h00m", r.FieldText(FieldEta))

	r.ResetFields()
	assert.Equal(t, "00h00m MON 00:00", r.FieldText(FieldEta))
}

func TestBacklight(t *testing.T) {
	t.Parallel()

	r, d := newTestRenderer(t)
	require.NoError(t, r.SetBacklight(true))
	assert.True(t, d.Backlight())
	require.NoError(t, r.SetBacklight(false))
	assert.False(t, d.Backlight())
}

func TestFormatDistance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "         1.5km", FormatDistance(1.5))
	assert.Len(t, FormatDistance(1.5), DistanceWidth)
	assert.Equal(t, "      1234.6km", FormatDistance(1234.56))
	assert.Equal(t, "         0.0km", FormatDistance(0))
}

func TestFitRunes(t *testing.T) {
	t.Parallel()

	l := DefaultLayout()
	assert.Equal(t, "", l.Fit(DefaultWidth, "abc"))
	assert.Equal(t, "ab", l.Fit(DefaultWidth-2, "abc"))
	assert.Equal(t, "ČŽ", l.Fit(DefaultWidth-2, "ČŽŠ"))
	assert.True(t, utf8.ValidString(l.Fit(DefaultWidth-3, "aČŽŠ")))
	assert.Equal(t, "ok", l.Fit(0, "ok"))

	assert.Equal(t, "ÄÖ", PadRight("ÄÖÜ", 2))
	assert.Equal(t, "Ä  ", PadRight("Ä", 3))
	assert.Equal(t, "", PadRight("x", 0))
}

func TestLayoutValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultLayout().Validate())
	l := DefaultLayout()
	l.Rows = 2
	assert.Error(t, l.Validate())
	l = DefaultLayout()
	l.Width = 0
	assert.Error(t, l.Validate())
	_, err := NewRenderer(nil, nil, DefaultLayout())
	assert.Error(t, err)
}
