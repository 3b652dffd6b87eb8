package ingest

import (
	"strings"
	"testing"

	"resaleback/internal/domain"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "iso date", raw: "2024-01-31", want: "20240131000000"},
		{name: "already normalized", raw: "20240131123045", want: "20240131123045"},
		{name: "empty cell", raw: "", wantErr: "cell B3 must contain a valid date"},
		{name: "blank cell", raw: "   ", wantErr: "cell B3 must contain a valid date"},
		{name: "garbage", raw: "tomorrow", wantErr: `cell B3 must contain a valid date, got "tomorrow"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDate(tt.raw, "B3")
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("normalizeDate(%q) error = %v, want %q", tt.raw, err, tt.wantErr)
				}
				if !domain.IsBadRequest(err) {
					t.Fatalf("normalizeDate(%q) error is not a bad request", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeDate(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("normalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeRank(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "A+", want: 0},
		{raw: "scratched A-", want: 2},
		{raw: "d-", want: 11},
		{raw: "", wantErr: true},
		{raw: "xyz", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizeRank(tt.raw, "T5")
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizeRank(%q) = %d, want error", tt.raw, got)
			} else if !strings.Contains(err.Error(), "T5") {
				t.Errorf("normalizeRank(%q) error %q does not name the cell", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeRank(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeRank(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "1200", want: 1200},
		{raw: "1,200,000", want: 1200000},
		{raw: " 99.5 ", want: 99.5},
		{raw: "", wantErr: true},
		{raw: "free", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizePrice(tt.raw, "M2")
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizePrice(%q) = %v, want error", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizePrice(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizePrice(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCellName(t *testing.T) {
	if got := cellName(1, 3); got != "A3" {
		t.Errorf("cellName(1, 3) = %q, want A3", got)
	}
	if got := cellName(28, 12); got != "AB12" {
		t.Errorf("cellName(28, 12) = %q, want AB12", got)
	}
}
