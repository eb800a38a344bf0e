package cmd

import (
	"testing"
	"time"
)

func TestParseISOTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339",
			input: "2026-08-29T17:30:00Z",
			want:  time.Date(2026, 8, 29, 17, 30, 0, 0, time.UTC),
		},
		{
			name:  "space instead of T",
			input: "2026-08-29 17:30:00Z",
			want:  time.Date(2026, 8, 29, 17, 30, 0, 0, time.UTC),
		},
		{
			name:  "naive timestamp is UTC",
			input: "2026-08-29T17:30:00",
			want:  time.Date(2026, 8, 29, 17, 30, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			input: "2026-08-29",
			want:  time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "empty is zero time",
			input: "",
			want:  time.Time{},
		},
		{
			name:    "garbage",
			input:   "next tuesday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseISOTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseISOTime(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseISOTime(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseISOTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
