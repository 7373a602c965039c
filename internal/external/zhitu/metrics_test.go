package zhitu

import "testing"

func TestExtractField(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]interface{}
		want *float64
	}{
		{
			name: "first candidate wins",
			row:  map[string]interface{}{"kflr": 1.5e8, "jlr": 9e9},
			want: ptr(1.5e8),
		},
		{
			name: "falls through to later candidate",
			row:  map[string]interface{}{"netProfit": -3e7},
			want: ptr(-3e7),
		},
		{
			name: "quoted number",
			row:  map[string]interface{}{"jlr": "250000000.5"},
			want: ptr(2.500000005e8),
		},
		{
			name: "no-data marker skipped in favor of next key",
			row:  map[string]interface{}{"kflr": "--", "jlr": 5e7},
			want: ptr(5e7),
		},
		{
			name: "all markers",
			row:  map[string]interface{}{"kflr": "--", "jlr": ""},
			want: nil,
		},
		{
			name: "unparsable string",
			row:  map[string]interface{}{"kflr": "亏损"},
			want: nil,
		},
		{
			name: "no candidate present",
			row:  map[string]interface{}{"roe": 12.0},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractField(tt.row, netProfitKeys)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("extractField() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("extractField() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]interface{}
		want string
	}{
		{"plain date", map[string]interface{}{"date": "2025-12-31"}, "2025-12-31"},
		{"timestamp truncated", map[string]interface{}{"jzrq": "2025-12-31 00:00:00"}, "2025-12-31"},
		{"compact form", map[string]interface{}{"reportDate": "20251231"}, "20251231"},
		{"missing", map[string]interface{}{"jlr": 1.0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDate(tt.row); got != tt.want {
				t.Errorf("extractDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnualRowsLatestFirst(t *testing.T) {
	rows := []map[string]interface{}{
		{"date": "2024-12-31", "jlr": 1.0},
		{"date": "2025-09-30", "jlr": 2.0}, // quarterly, dropped
		{"date": "2025-12-31", "jlr": 3.0},
		{"date": "2023-12-31", "jlr": 4.0},
		{"date": "20221231", "jlr": 5.0}, // compact annual form kept
	}

	annual := annualRowsLatestFirst(rows)
	if len(annual) != 4 {
		t.Fatalf("kept %d rows, want 4", len(annual))
	}
	if got := extractDate(annual[0]); got != "2025-12-31" {
		t.Errorf("latest row = %s, want 2025-12-31", got)
	}
	if got := extractDate(annual[1]); got != "2024-12-31" {
		t.Errorf("second row = %s, want 2024-12-31", got)
	}
}

func TestIsAnnualPeriod(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2025-12-31", true},
		{"20251231", true},
		{"2025-09-30", false},
		{"2025-06-30", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isAnnualPeriod(tt.date); got != tt.want {
			t.Errorf("isAnnualPeriod(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}
