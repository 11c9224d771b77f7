package dateutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// Tuesday, 5 March 2024 at 15:04.
var day = time.Date(2024, 3, 5, 15, 4, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// TestFormat - Tokens, presets and literals
// ---------------------------------------------------------------------------

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{"default artifact format", DefaultDateFormat, "2024-03-05", nil},
		{"iso preset", "iso", "2024-03-05", nil},
		{"european preset", "european", "05/03/2024", nil},
		{"us preset uppercase", "US", "03/05/2024", nil},
		{"long preset", "long", "March 5, 2024", nil},
		{"compact tokens", "YYYYMMDD", "20240305", nil},
		{"non-padded day and month", "D.M.YY", "5.3.24", nil},
		{"short month", "D MMM YY", "5 Mar 24", nil},
		{"weekday names", "dddd / ddd", "Tuesday / Tue", nil},
		{"adjacent single tokens", "MD", "35", nil},
		{"bracket literal", "[week of] D MMM", "week of 5 Mar", nil},
		{"literal reference words stay literal", "[Monday Jan 2006 15 PM] YYYY", "Monday Jan 2006 15 PM 2024", nil},
		{"unbracketed digits stay literal", "YYYY-15", "2024-15", nil},
		{"empty brackets", "[]YYYY", "2024", nil},
		{"empty format", "", "", ErrInvalidDateFormat},
		{"unclosed bracket", "[at YYYY", "", ErrInvalidDateFormat},
		{"too long", strings.Repeat("Y", MaxDateFormatLength+1), "", ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Format(tt.format, day)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Format(%q) error = %v, want %v", tt.format, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestCompile_UnclosedBracketPosition(t *testing.T) {
	t.Parallel()

	_, err := Compile("YYYY [x")
	if err == nil || !strings.Contains(err.Error(), "position 5") {
		t.Errorf("Compile() error = %v, want position 5", err)
	}
}

func TestLayout_Reuse(t *testing.T) {
	t.Parallel()

	l, err := Compile("long")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := l.Format(day.AddDate(0, 9, 20)); got != "December 25, 2024" {
		t.Errorf("Format() = %q", got)
	}
	if got := l.Format(day); got != "March 5, 2024" {
		t.Errorf("Format() = %q", got)
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()

	names := Presets()
	if len(names) != len(presets) {
		t.Fatalf("Presets() = %v, want %d names", names, len(presets))
	}
	for _, name := range names {
		if _, ok := presets[name]; !ok {
			t.Errorf("Presets() lists unknown preset %q", name)
		}
	}
}
