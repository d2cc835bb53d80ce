package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExtractUPIReference(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{"upi with reference", "UPI-404912345678-SWIGGY", "404912345678"},
		{"upi token required", "NEFT 404912345678 TRANSFER", ""},
		{"upi without digits", "UPI-SWIGGY ORDER", ""},
		{"eleven digits only", "UPI-40491234567-X", ""},
		{"thirteen digits takes first twelve", "UPI-4049123456789", "404912345678"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUPIReference(tt.description); got != tt.expected {
				t.Errorf("ExtractUPIReference(%q) = %q, want %q", tt.description, got, tt.expected)
			}
		})
	}
}

func TestDedupKey(t *testing.T) {
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(200.5)

	got := DedupKey("HDFC", "CHQ123", date, amount)
	want := "HDFC-CHQ123-20240302-200.50"
	if got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}
}

func TestDedupKey_Idempotent(t *testing.T) {
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	a := DedupKey("ICICI", "S No. 4", date, decimal.NewFromInt(100))
	b := DedupKey("ICICI", "S No. 4", date, decimal.NewFromInt(100))
	if a != b {
		t.Errorf("DedupKey() not deterministic: %q vs %q", a, b)
	}
}

func TestParseDayFirstDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"slash format", "01/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"dash format", "01-03-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"short year", "1/3/06", time.Date(2006, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"month name", "02 Jan 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"with time", "01/03/2024 14:30:00", time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), false},
		{"garbage", "not a date", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDayFirstDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDayFirstDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDayFirstDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "200.00", "200", false},
		{"thousands separator", "1,234.56", "1234.56", false},
		{"empty coerces to zero", "", "0", false},
		{"dash coerces to zero", "-", "0", false},
		{"na coerces to zero", "NA", "0", false},
		{"negative", "-50.25", "-50.25", false},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRowPayload(t *testing.T) {
	header := []string{"Date", "Narration", "Amount"}
	row := []string{"01/03/2024", "SWIGGY"}

	payload := RowPayload(header, row)
	if payload["Date"] != "01/03/2024" || payload["Narration"] != "SWIGGY" {
		t.Errorf("RowPayload() = %v, want header-keyed cells", payload)
	}
	if _, ok := payload["Amount"]; ok {
		t.Error("RowPayload() should omit columns past the row length")
	}
}
