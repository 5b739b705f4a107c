package telemetry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAbsolute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  uint64
		expect string
	}{
		{0, "MON 00:00"},
		{59, "MON 00:00"},
		{3661, "MON 01:01"},
		{90000, "TUE 01:00"},
		{6*SecondsPerDay + 23*SecondsPerHour + 59*SecondsPerMinute + 59, "SUN 23:59"},
		{SecondsPerWeek, "MON 00:00"},
		{SecondsPerWeek + 2*SecondsPerDay + 13*SecondsPerHour + 7*SecondsPerMinute, "WED 13:07"},
		{uint64(1<<32-1) + 1<<32, "SUN 12:56"},
	}
	for _, c := range cases {
		c := c
		t.Run(fmt.Sprint(c.input), func(t *testing.T) {
			assert.Equal(t, c.expect, FormatAbsolute(c.input))
		})
	}
}

func TestWeekdayPeriodic(t *testing.T) {
	t.Parallel()

	for s := uint64(0); s < SecondsPerWeek; s += 599 {
		if Weekday(s) != Weekday(s+SecondsPerWeek) {
			t.Fatalf("weekday(%d)=%d weekday(+week)=%d", s, Weekday(s), Weekday(s+SecondsPerWeek))
		}
	}
	for day, name := range []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"} {
		assert.Equal(t, name, WeekdayName(uint64(day)*SecondsPerDay+1))
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00h00m", FormatDuration(0))
	assert.Equal(t, "00h00m", FormatDuration(59))
	assert.Equal(t, "01h30m", FormatDuration(5400))
	assert.Equal(t, "25h00m", FormatDuration(90000))
	assert.Equal(t, "100h01m", FormatDuration(360060))
}

func TestFormatUntil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00h00m MON 00:00", FormatUntil(0, 0))
	assert.Equal(t, "01h00m MON 02:00", FormatUntil(3600, 3600))
	assert.Equal(t, "02h00m MON 01:00", FormatUntil(6*SecondsPerDay+23*SecondsPerHour, 2*SecondsPerHour))
	// projection must not wrap at 32 bits
	assert.Equal(t, "01h00m "+FormatAbsolute(uint64(1<<32-1)+3600), FormatUntil(1<<32-1, 3600))
}

func TestKilometers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.5, Kilometers(1500))
	assert.Equal(t, 0.0, Kilometers(0))
}
