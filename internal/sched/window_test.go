package sched

import (
	"testing"
	"time"
)

func TestParseDayTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want DayTime
	}{
		{"14:00", 14 * 3600},
		{"09:15:30", 9*3600 + 15*60 + 30},
		{"2pm", 14 * 3600},
		{"2:30pm", 14*3600 + 30*60},
		{"12:00am", 0},
		{" 3PM ", 15 * 3600},
	}
	for _, tt := range tests {
		got, err := ParseDayTime(tt.in)
		if err != nil {
			t.Fatalf("ParseDayTime(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDayTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseDayTimeInvalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "25:00", "noon", "14:60"} {
		if _, err := ParseDayTime(in); err == nil {
			t.Fatalf("ParseDayTime(%q): expected error", in)
		}
	}
}

func dayAt(hh, mm, ss int) time.Time {
	return time.Date(2016, 11, 29, hh, mm, ss, 0, time.UTC)
}

func TestWindowContains(t *testing.T) {
	t.Parallel()
	w := Window{Start: 14 * 3600, End: 15 * 3600}
	tests := []struct {
		now  time.Time
		want bool
	}{
		{dayAt(13, 59, 59), false},
		{dayAt(14, 0, 0), true}, // inclusive start
		{dayAt(14, 30, 0), true},
		{dayAt(14, 59, 59), true},
		{dayAt(15, 0, 0), false}, // exclusive end
		{dayAt(15, 30, 0), false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.now); got != tt.want {
			t.Fatalf("Contains(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestWindowWrapsMidnight(t *testing.T) {
	t.Parallel()
	w := Window{Start: 22 * 3600, End: 2 * 3600}
	tests := []struct {
		now  time.Time
		want bool
	}{
		{dayAt(21, 59, 59), false},
		{dayAt(22, 0, 0), true},
		{dayAt(23, 30, 0), true},
		{dayAt(0, 0, 0), true},
		{dayAt(1, 59, 59), true},
		{dayAt(2, 0, 0), false},
		{dayAt(12, 0, 0), false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.now); got != tt.want {
			t.Fatalf("Contains(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}
