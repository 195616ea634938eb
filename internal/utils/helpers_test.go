package utils

import "testing"

func TestTeamID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Natus Vincere", "natus_vincere"},
		{"G2 Esports", "g2_esports"},
		{"  FaZe  ", "faze"},
		{"100-Thieves!", "100_thieves"},
		{"mixed CASE", "mixed_case"},
	}
	for _, tt := range tests {
		if got := TeamID(tt.name); got != tt.want {
			t.Errorf("TeamID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMatchSlug(t *testing.T) {
	a, b := "a", "b"
	if got := MatchSlug(&a, &b); got != "a_vs_b" {
		t.Errorf("got %q", got)
	}
	if got := MatchSlug(&a, nil); got != "a_vs_null" {
		t.Errorf("bye slug: got %q", got)
	}
}

func TestPowerOfTwoHelpers(t *testing.T) {
	for n, want := range map[int]bool{1: true, 2: true, 3: false, 4: true, 6: false, 8: true} {
		if IsPowerOfTwo(n) != want {
			t.Errorf("IsPowerOfTwo(%d) != %v", n, want)
		}
	}
	for n, want := range map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 8: 8, 9: 16} {
		if got := NextPowerOfTwo(n); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", n, got, want)
		}
	}
}
