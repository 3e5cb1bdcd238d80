package names

import "testing"

func TestSuggest(t *testing.T) {
	cands := []string{"place_building", "assign_job", "gather"}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"place_buildng", "place_building", true},
		{"Assign-Job", "assign_job", true},
		{"gathr", "gather", true},
		{"completely_unrelated", "", false},
	}
	for _, tc := range tests {
		got, ok := Suggest(tc.in, cands)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHint(t *testing.T) {
	if h := Hint("wod", []string{"wood", "stone"}); h != ` (did you mean "wood"?)` {
		t.Fatalf("Hint = %q", h)
	}
	if h := Hint("zzzzzzzz", []string{"wood"}); h != "" {
		t.Fatalf("Hint for far input = %q, want empty", h)
	}
}
