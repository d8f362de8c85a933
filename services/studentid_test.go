package services

import "testing"

func TestFormatStudentID(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		year   int
		seq    int
		want   string
	}{
		{name: "first of year", prefix: "CD", year: 2026, seq: 1, want: "CD-2026-0001"},
		{name: "padded", prefix: "CD", year: 2026, seq: 42, want: "CD-2026-0042"},
		{name: "four digits", prefix: "CD", year: 2026, seq: 9999, want: "CD-2026-9999"},
		{name: "widens past padding", prefix: "CD", year: 2026, seq: 10000, want: "CD-2026-10000"},
		{name: "custom prefix", prefix: "ACME", year: 2030, seq: 7, want: "ACME-2030-0007"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatStudentID(tc.prefix, tc.year, tc.seq); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
