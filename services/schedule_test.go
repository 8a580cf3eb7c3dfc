package services

import (
	"testing"
	"time"

	"food-delivery/models"
)

func TestIsOpenAt(t *testing.T) {
	// 2025-01-15 is a Wednesday.
	at := func(h, m int) time.Time { return time.Date(2025, 1, 15, h, m, 0, 0, ist) }
	night := map[string]models.DayHours{"wednesday": {OpenTime: "22:00", CloseTime: "02:00", IsOpen: true}}
	day := map[string]models.DayHours{"wednesday": {OpenTime: "09:00", CloseTime: "17:30", IsOpen: true}}
	closed := map[string]models.DayHours{"wednesday": {OpenTime: "09:00", CloseTime: "17:30", IsOpen: false}}

	tests := []struct {
		name  string
		hours map[string]models.DayHours
		t     time.Time
		want  bool
	}{
		{"before window", day, at(8, 59), false},
		{"open boundary", day, at(9, 0), true},
		{"midday", day, at(13, 0), true},
		{"close boundary", day, at(17, 30), true},
		{"after close", day, at(17, 31), false},
		{"wrap late evening", night, at(23, 30), true},
		{"wrap early morning", night, at(1, 59), true},
		{"wrap close boundary", night, at(2, 0), true},
		{"wrap after close", night, at(2, 1), false},
		{"wrap before open", night, at(21, 59), false},
		{"closed flag", closed, at(13, 0), false},
		{"no entry for day", map[string]models.DayHours{"monday": {OpenTime: "00:00", CloseTime: "23:59", IsOpen: true}}, at(13, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsOpenAt(tt.hours, tt.t)
			if err != nil {
				t.Fatalf("IsOpenAt: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsOpenAt(%s) = %v, want %v", tt.t.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestIsOpenAtMalformed(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, ist)
	for _, bad := range []string{"9", "25:00", "09:60", "ab:cd", "09:5"} {
		hours := map[string]models.DayHours{"wednesday": {OpenTime: bad, CloseTime: "17:00", IsOpen: true}}
		if _, err := IsOpenAt(hours, now); err == nil {
			t.Errorf("IsOpenAt with open time %q: want error", bad)
		}
	}
}
