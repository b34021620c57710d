// internal/model/context.go
package model

import "time"

// TimeContext is the time-of-week bucket a baseline is learned for.
type TimeContext string

const (
	WeekdayMorning   TimeContext = "weekday_morning"
	WeekdayAfternoon TimeContext = "weekday_afternoon"
	WeekdayEvening   TimeContext = "weekday_evening"
	WeekdayNight     TimeContext = "weekday_night"
	WeekendDay       TimeContext = "weekend_day"
	WeekendNight     TimeContext = "weekend_night"
)

// AllContexts lists every TimeContext in a stable order.
var AllContexts = []TimeContext{
	WeekdayMorning,
	WeekdayAfternoon,
	WeekdayEvening,
	WeekdayNight,
	WeekendDay,
	WeekendNight,
}

// ContextFor maps a wall-clock time, in its own location, to a TimeContext.
func ContextFor(t time.Time) TimeContext {
	hour := t.Hour()
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		if hour >= 8 && hour <= 20 {
			return WeekendDay
		}
		return WeekendNight
	}
	switch {
	case hour >= 6 && hour < 12:
		return WeekdayMorning
	case hour >= 12 && hour < 18:
		return WeekdayAfternoon
	case hour >= 18 && hour < 23:
		return WeekdayEvening
	default:
		return WeekdayNight
	}
}

// Valid reports whether c is one of the six known contexts.
func (c TimeContext) Valid() bool {
	for _, known := range AllContexts {
		if c == known {
			return true
		}
	}
	return false
}
