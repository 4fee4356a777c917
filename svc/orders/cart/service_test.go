package cart

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeLang(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ar", "ar"},
		{"en", "en"},
		{"ur", "ur"},
		{"", "ar"},
		{"fr", "ar"},
	}
	for _, tt := range tests {
		if got := normalizeLang(tt.in); got != tt.want {
			t.Errorf("normalizeLang(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCartKeyGuest(t *testing.T) {
	// No auth data in tests, so resolution always takes the guest path.
	key, token, err := resolveCartKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a minted session token")
	}
	if _, err := uuid.Parse(token); err != nil {
		t.Errorf("minted token is not a uuid: %q", token)
	}
	if key != "guest:"+token {
		t.Errorf("expected guest-scoped key, got %q", key)
	}
}

func TestResolveCartKeyExistingToken(t *testing.T) {
	existing := uuid.NewString()
	key, token, err := resolveCartKey(existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != existing {
		t.Errorf("expected token to be echoed, got %q", token)
	}
	if key != "guest:"+existing {
		t.Errorf("expected guest-scoped key, got %q", key)
	}
}

func TestResolveCartKeyRejectsGarbage(t *testing.T) {
	if _, _, err := resolveCartKey("not-a-uuid"); err == nil {
		t.Error("expected error for malformed session token")
	}
}
