package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"food-delivery/models"
)

// IsOpenAt reports whether a restaurant's weekly hours admit t. t should
// already be in the restaurant's time zone. Both window ends are inclusive
// and a close time earlier than the open time wraps past midnight.
func IsOpenAt(hours map[string]models.DayHours, t time.Time) (bool, error) {
	day, ok := hours[strings.ToLower(t.Weekday().String())]
	if !ok || !day.IsOpen {
		return false, nil
	}
	open, err := parseClock(day.OpenTime)
	if err != nil {
		return false, err
	}
	closing, err := parseClock(day.CloseTime)
	if err != nil {
		return false, err
	}
	now := t.Hour()*60 + t.Minute()
	if closing < open {
		return now >= open || now <= closing, nil
	}
	return now >= open && now <= closing, nil
}

// parseClock turns "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 || len(m) != 2 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return hh*60 + mm, nil
}
