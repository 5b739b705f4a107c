package telemetry

import "fmt"

const (
	SecondsPerMinute = 60
	SecondsPerHour   = 60 * SecondsPerMinute
	SecondsPerDay    = 24 * SecondsPerHour
	SecondsPerWeek   = 7 * SecondsPerDay
)

// Game week starts Monday 00:00.
var weekdayNames = [7]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// Weekday index, 0 is Monday.
func Weekday(total uint64) int { return int((total / SecondsPerDay) % 7) }

func WeekdayName(total uint64) string { return weekdayNames[Weekday(total)] }

// FormatAbsolute "DOW HH:MM" from seconds since week start.
func FormatAbsolute(total uint64) string {
	hour := (total / SecondsPerHour) % 24
	minute := (total / SecondsPerMinute) % 60
	return fmt.Sprintf("%s %02d:%02d", WeekdayName(total), hour, minute)
}

// FormatDuration "HHhMMm", hours not wrapped at 24.
func FormatDuration(d uint32) string {
	hours := d / SecondsPerHour
	minutes := (d % SecondsPerHour) / SecondsPerMinute
	return fmt.Sprintf("%02dh%02dm", hours, minutes)
}

// FormatUntil duration followed by projected absolute time of now+d.
func FormatUntil(now, d uint32) string {
	return FormatDuration(d) + " " + FormatAbsolute(uint64(now)+uint64(d))
}

func Kilometers(meters float64) float64 { return meters / 1000 }
