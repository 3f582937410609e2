package timex

import (
	"errors"
	"testing"
	"time"
)

func TestParseMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"9:30", 0, true},
		{"0930", 0, true},
		{"ab:cd", 0, true},
	}
	for _, c := range cases {
		got, err := ParseMinutes(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseMinutes(%q): expected error, got %d", c.in, got)
			} else if !errors.Is(err, ErrInvalidTimeFormat) {
				t.Errorf("ParseMinutes(%q): error %v is not ErrInvalidTimeFormat", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMinutes(%q): unexpected error %v", c.in, err)
		} else if got != c.want {
			t.Errorf("ParseMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(570); got != "09:30" {
		t.Errorf("FormatMinutes(570) = %q, want 09:30", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Errorf("FormatMinutes(0) = %q, want 00:00", got)
	}
}

func TestRangesOverlap(t *testing.T) {
	// Touching edges are not an overlap.
	if RangesOverlap(540, 600, 600, 660) {
		t.Error("adjacent ranges reported as overlapping")
	}
	if !RangesOverlap(540, 600, 570, 630) {
		t.Error("intersecting ranges not reported as overlapping")
	}
	if !RangesOverlap(540, 660, 570, 600) {
		t.Error("contained range not reported as overlapping")
	}
	if RangesOverlap(540, 600, 660, 720) {
		t.Error("disjoint ranges reported as overlapping")
	}
}

func TestCombine(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	got, err := Combine(day, "14:45")
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	want := time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Combine = %s, want %s", got, want)
	}

	if _, err := Combine(day, "25:00"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Errorf("Combine with bad input: got %v, want ErrInvalidTimeFormat", err)
	}
}

func TestFutureDatesForWeekdays_ExcludesToday(t *testing.T) {
	// 2026-03-09 is a Monday.
	today := time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC)
	dates := FutureDatesForWeekdays([]time.Weekday{time.Monday}, 4, today)

	if len(dates) != 3 {
		t.Fatalf("expected 3 dates (today excluded), got %d", len(dates))
	}
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !dates[0].Equal(want) {
		t.Errorf("first date = %s, want %s", dates[0], want)
	}
}

func TestFutureDatesForWeekdays_SortedAcrossWeekdays(t *testing.T) {
	// 2026-03-11 is a Wednesday.
	today := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	dates := FutureDatesForWeekdays([]time.Weekday{time.Friday, time.Monday}, 2, today)

	if len(dates) != 4 {
		t.Fatalf("expected 4 dates, got %d", len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Fatalf("dates not strictly ascending: %s then %s", dates[i-1], dates[i])
		}
	}
	// Friday of the same week comes before next Monday.
	if dates[0].Weekday() != time.Friday {
		t.Errorf("first date weekday = %s, want Friday", dates[0].Weekday())
	}
}

func TestReportingTime_EvenSpread(t *testing.T) {
	// 09:00-10:00 with three patients: 09:00, 09:20, 09:40.
	start, end := 540, 600
	want := []int{540, 560, 580}
	for i, w := range want {
		if got := ReportingTime(start, end, 3, i); got != w {
			t.Errorf("ReportingTime(index=%d) = %s, want %s", i, FormatMinutes(got), FormatMinutes(w))
		}
	}
}

func TestReportingTime_FloorsToWholeMinutes(t *testing.T) {
	// 50 minute slot, 3 patients: second patient reports at start+16, third at start+33.
	start, end := 600, 650
	if got := ReportingTime(start, end, 3, 1); got != 616 {
		t.Errorf("index 1 = %d, want 616", got)
	}
	if got := ReportingTime(start, end, 3, 2); got != 633 {
		t.Errorf("index 2 = %d, want 633", got)
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := ParseWeekday("MONDAY")
	if err != nil || wd != time.Monday {
		t.Errorf("ParseWeekday(MONDAY) = %v, %v", wd, err)
	}
	if _, err := ParseWeekday("FUNDAY"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}
