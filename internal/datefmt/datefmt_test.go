package datefmt

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "already normalized", raw: "20240131120000", want: "20240131120000"},
		{name: "iso date", raw: "2024-01-31", want: "20240131000000"},
		{name: "iso datetime", raw: "2024-01-31 12:30:45", want: "20240131123045"},
		{name: "dotted date", raw: "2024.01.31", want: "20240131000000"},
		{name: "slashed date", raw: "2024/01/31", want: "20240131000000"},
		{name: "compact date", raw: "20240131", want: "20240131000000"},
		{name: "surrounding whitespace", raw: "  2024-01-31  ", want: "20240131000000"},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: "   ", wantErr: true},
		{name: "not a date", raw: "soon", wantErr: true},
		{name: "partial garbage", raw: "2024-13-99", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Normalize(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAfterMatchesChronology(t *testing.T) {
	earlier := "20240115000000"
	later := "20240116000000"

	if !After(later, earlier) {
		t.Errorf("After(%q, %q) = false, want true", later, earlier)
	}
	if After(earlier, later) {
		t.Errorf("After(%q, %q) = true, want false", earlier, later)
	}
	if After(earlier, earlier) {
		t.Errorf("After(%q, %q) = true, want false for equal dates", earlier, earlier)
	}
}

func TestDayAndMonthBounds(t *testing.T) {
	at := time.Date(2024, time.February, 15, 13, 45, 10, 0, time.UTC)

	if got, want := StartOfDay(at), "20240215000000"; got != want {
		t.Errorf("StartOfDay = %q, want %q", got, want)
	}
	if got, want := EndOfDay(at), "20240215235959"; got != want {
		t.Errorf("EndOfDay = %q, want %q", got, want)
	}
	if got, want := StartOfMonth(at), "20240201000000"; got != want {
		t.Errorf("StartOfMonth = %q, want %q", got, want)
	}
	if got, want := EndOfMonth(at), "20240229235959"; got != want {
		t.Errorf("EndOfMonth = %q, want %q", got, want)
	}
}
