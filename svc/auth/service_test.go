package auth

import "testing"

func TestNormalizeLang(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ar", "ar"},
		{"en", "en"},
		{"ur", "ur"},
		{"", "ar"},
		{"fr", "ar"},
		{"AR", "ar"},
	}
	for _, c := range cases {
		if got := normalizeLang(c.in); got != c.want {
			t.Errorf("normalizeLang(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
