package utils

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  Asha Verma  ", want: "Asha Verma"},
		{name: "strips null bytes", input: "Asha\x00Verma", want: "AshaVerma"},
		{name: "null bytes then trim", input: " \x00 Asha \x00", want: "Asha"},
		{name: "clean input unchanged", input: "Asha", want: "Asha"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"owner", "admin", "teacher", "student"} {
		if !IsValidRole(role) {
			t.Fatalf("expected %q to be valid", role)
		}
	}
	for _, role := range []string{"", "superuser", "Admin"} {
		if IsValidRole(role) {
			t.Fatalf("expected %q to be rejected", role)
		}
	}
}
