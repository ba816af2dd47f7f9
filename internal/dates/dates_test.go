package dates

import "testing"

func TestNormalize_CommonFormats(t *testing.T) {
	cases := []string{
		"2025-12-25",
		"25/12/2025",
		"25.12.2025",
		"25-12-2025",
		"2025/12/25",
		"20251225",
		"25.12.25",
		"2025-12-25T00:00:00Z",
		"2025-12-25 00:00:00",
		" 25/12/2025 ",
		"46016",
	}

	for _, in := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q) error = %v", in, err)
			continue
		}
		if got != "25.12.2025" {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, "25.12.2025")
		}
	}
}

func TestNormalize_ZeroPads(t *testing.T) {
	got, err := Normalize("5.1.2026")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got != "05.01.2026" {
		t.Errorf("Normalize() = %q, want %q", got, "05.01.2026")
	}
}

func TestNormalize_Rejects(t *testing.T) {
	for _, in := range []string{"", "  ", "tomorrow", "31.02.2025", "10", "2025-13-01"} {
		if got, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q) = %q, want error", in, got)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"25.12.2025", "25.12.2025", true},
		{"25.12.2025", "2025-12-25", true},
		{" 25.12.2025", "25/12/2025", true},
		{"01.01.2025", "25.12.2025", false},
		{"", "25.12.2025", false},
		{"", "", true},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
