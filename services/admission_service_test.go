package services

import "testing"

func TestResolveParts(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		requested  int
		want       int
	}{
		{name: "explicit request wins", configured: 3, requested: 4, want: 4},
		{name: "unset request uses configured default", configured: 3, requested: 0, want: 3},
		{name: "negative request uses configured default", configured: 3, requested: -1, want: 3},
		{name: "no configured default falls back", configured: 0, requested: 0, want: 2},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAdmissionService("CD", tc.configured)
			if got := svc.resolveParts(tc.requested); got != tc.want {
				t.Fatalf("expected %d parts, got %d", tc.want, got)
			}
		})
	}
}
