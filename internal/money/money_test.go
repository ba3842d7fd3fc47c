package money

import (
	"testing"
	"time"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.006, 1.01},
		{1.004, 1.00},
		{16.335616438356166, 16.34},
		{0.36301369863013697, 0.36},
		{-1.006, -1.01},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2024, 11, 17, 0, 0, 0, 0, time.UTC)
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(due, current); got != 45 {
		t.Fatalf("expected 45 days, got %d", got)
	}
	if got := DaysBetween(current, due); got != -45 {
		t.Fatalf("expected -45 days, got %d", got)
	}
	if got := DaysBetween(due, due); got != 0 {
		t.Fatalf("expected 0 days, got %d", got)
	}

	// Partial days floor toward the earlier whole day.
	later := due.Add(36 * time.Hour)
	if got := DaysBetween(due, later); got != 1 {
		t.Fatalf("expected 1 day for 36h, got %d", got)
	}
}

func TestQuarterFor(t *testing.T) {
	cases := []struct {
		date     time.Time
		quarter  int
		start    time.Time
		end      time.Time
		deadline time.Time
	}{
		{
			date:     time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
			quarter:  1,
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			deadline: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			date:     time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			quarter:  2,
			start:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			deadline: time.Date(2024, 8, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			date:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			quarter:  4,
			start:    time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			deadline: time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		q := QuarterFor(tc.date)
		if q.Quarter != tc.quarter {
			t.Fatalf("%v: expected Q%d, got Q%d", tc.date, tc.quarter, q.Quarter)
		}
		if !q.StartDate.Equal(tc.start) || !q.EndDate.Equal(tc.end) {
			t.Fatalf("%v: bad bounds %v..%v", tc.date, q.StartDate, q.EndDate)
		}
		if !q.Deadline.Equal(tc.deadline) {
			t.Fatalf("%v: expected deadline %v, got %v", tc.date, tc.deadline, q.Deadline)
		}
	}
}

func TestFormatGBP(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1234.56, "£1,234.56"},
		{0, "£0.00"},
		{999.99, "£999.99"},
		{1000000, "£1,000,000.00"},
		{-45.5, "-£45.50"},
	}
	for _, tc := range cases {
		if got := FormatGBP(tc.in); got != tc.want {
			t.Fatalf("FormatGBP(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPenceConversion(t *testing.T) {
	if got := PoundsToPence(10.01); got != 1001 {
		t.Fatalf("expected 1001 pence, got %d", got)
	}
	if got := PenceToPounds(12345); got != 123.45 {
		t.Fatalf("expected 123.45, got %v", got)
	}
}
