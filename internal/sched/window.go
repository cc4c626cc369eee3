package sched

import (
	"fmt"
	"strings"
	"time"
)

// DayTime is a time of day expressed as seconds since midnight.
type DayTime int

func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d)/3600, int(d)/60%60, int(d)%60)
}

var dayTimeLayouts = []string{"15:04:05", "15:04", "3:04:05pm", "3:04pm", "3pm"}

// ParseDayTime accepts "15:04", "15:04:05" and am/pm forms like "2pm" or
// "2:30pm".
func ParseDayTime(s string) (DayTime, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for _, layout := range dayTimeLayouts {
		t, err := time.Parse(layout, in)
		if err != nil {
			continue
		}
		return DayTime(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Window is a daily recurring time-of-day range, inclusive at Start and
// exclusive at End. If End < Start the window wraps past midnight.
//
// A Window with Start == End is rejected at job validation time and never
// reaches Contains.
type Window struct {
	Start DayTime
	End   DayTime
}

// Contains reports whether now's time of day lies inside the window.
func (w Window) Contains(now time.Time) bool {
	d := DayTime(now.Hour()*3600 + now.Minute()*60 + now.Second())
	if w.Start <= w.End {
		return d >= w.Start && d < w.End
	}
	// Wraps midnight: [start, 24:00) U [0:00, end).
	return d >= w.Start || d < w.End
}
