package order_mgmt

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"pending", "processing", true},
		{"pending", "cancelled", true},
		{"pending", "shipped", false},
		{"pending", "delivered", false},
		{"processing", "shipped", true},
		{"processing", "cancelled", true},
		{"processing", "delivered", false},
		{"shipped", "delivered", true},
		{"shipped", "cancelled", false},
		{"delivered", "pending", false},
		{"cancelled", "processing", false},
		{"unknown", "processing", false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
