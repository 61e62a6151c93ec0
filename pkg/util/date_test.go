package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2022-09-08")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2022, 9, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
	if _, ok := ParseTime("-5"); ok {
		t.Fatalf("expected failure for negative unix")
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	in := time.Date(2024, 4, 20, 3, 0, 0, 0, loc) // 2024-04-19 18:00 UTC
	if got := FormatDay(Day(in)); got != "2024-04-19" {
		t.Fatalf("unexpected day %s", got)
	}
}

func TestParseBoundedInt(t *testing.T) {
	if v, err := ParseBoundedInt("", 50, 0, 100); err != nil || v != 50 {
		t.Fatalf("empty: got %d, %v", v, err)
	}
	if v, err := ParseBoundedInt(" 30 ", 50, 0, 100); err != nil || v != 30 {
		t.Fatalf("valid: got %d, %v", v, err)
	}
	for _, s := range []string{"x", "12.5", "-1", "101"} {
		if _, err := ParseBoundedInt(s, 50, 0, 100); err == nil {
			t.Fatalf("%q: expected error", s)
		}
	}
}
