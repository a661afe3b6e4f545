package main

import (
	"strings"
	"testing"
	"time"
)

func TestParseStartTimeRFC3339(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	when, err := parseStartTime("2026-09-06T10:30:00-04:00", loc)
	if err != nil {
		t.Fatalf("parseStartTime returned error: %v", err)
	}
	if got := when.UTC(); !got.Equal(time.Date(2026, 9, 6, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parsed time: %s", got)
	}
}

func TestParseStartTimeWallClockUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	when, err := parseStartTime("2026-01-15 09:00", loc)
	if err != nil {
		t.Fatalf("parseStartTime returned error: %v", err)
	}
	if when.Location() != loc {
		t.Fatalf("expected time in %s, got %s", loc, when.Location())
	}
	if when.Hour() != 9 || when.Minute() != 0 {
		t.Fatalf("unexpected wall clock: %s", when)
	}
}

func TestParseStartTimeRejectsGarbage(t *testing.T) {
	if _, err := parseStartTime("next tuesday", time.UTC); err == nil {
		t.Fatal("expected error for unparseable time")
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "short names", input: "sun,wed", want: []int{0, 3}},
		{name: "full names", input: "sunday, Wednesday", want: []int{0, 3}},
		{name: "duplicates collapse", input: "mon,mon,fri", want: []int{1, 5}},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown day", input: "sun,blursday", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseWeekdays(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWeekdays(%q) returned error: %v", tc.input, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Running", statusOK, "yes", false)
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no ANSI codes, got %q", line)
	}
	if !strings.Contains(line, "Running:") || !strings.Contains(line, "yes") {
		t.Fatalf("unexpected status line %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Heartbeat", statusWarn, "stale", true)
	if !strings.HasPrefix(line, ansiYellow) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected yellow wrapping, got %q", line)
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Title"},
		[][]string{{"bc-1", "Sunday Service"}, {"bc-2", "Midweek"}},
	)
	for _, want := range []string{"ID", "Title", "bc-1", "Sunday Service", "bc-2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
}
