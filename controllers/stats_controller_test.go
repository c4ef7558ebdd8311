package controllers

import (
	"testing"
	"time"
)

func TestStartOfDayUsesLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2026, 3, 1, 1, 30, 0, 0, loc)

	got := startOfDay(ts)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("startOfDay = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}

	// 01:30 local is still the previous day in UTC; a UTC-based truncation
	// would start the window a day early.
	if utcTrunc := ts.Truncate(24 * time.Hour); got.Equal(utcTrunc) {
		t.Errorf("startOfDay matches UTC truncation %v; window ignores the location", utcTrunc)
	}
}
