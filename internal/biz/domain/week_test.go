package domain

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestWeekStart_Monday(t *testing.T) {
	loc := mustLoad(t, "Europe/Dublin")
	// Monday 2024-01-15 09:00
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)

	got := WeekStart(now, loc)
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestWeekStart_Sunday(t *testing.T) {
	loc := mustLoad(t, "Europe/Dublin")
	now := time.Date(2024, 1, 21, 23, 59, 0, 0, loc)

	if got := WeekKey(now, loc); got != "2024-01-15" {
		t.Errorf("Expected 2024-01-15, got %s", got)
	}
}

func TestWeekStart_UsesReferenceTimezone(t *testing.T) {
	loc := mustLoad(t, "Europe/Dublin")
	tokyo := mustLoad(t, "Asia/Tokyo")

	// Monday 01:00 in Tokyo is still Sunday afternoon in Dublin
	now := time.Date(2024, 1, 22, 1, 0, 0, 0, tokyo)

	if got := WeekKey(now, loc); got != "2024-01-15" {
		t.Errorf("Expected previous week 2024-01-15, got %s", got)
	}
}

func TestWeekStart_AcrossMonthBoundary(t *testing.T) {
	loc := mustLoad(t, "Europe/Dublin")
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, loc) // Saturday

	if got := WeekKey(now, loc); got != "2024-02-26" {
		t.Errorf("Expected 2024-02-26, got %s", got)
	}
}
