package money

import "testing"

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     float64
	}{
		{1.005, 2, 1.01},
		{1.004, 2, 1.00},
		{2.675, 2, 2.68},
		{-1.005, 2, -1.01},
		{1234.5, 0, 1235},
		{0, 2, 0},
	}
	for _, tt := range tests {
		if got := RoundHalfUp(tt.value, tt.decimals); got != tt.want {
			t.Errorf("RoundHalfUp(%v, %d) = %v, want %v", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestGrossFromNet(t *testing.T) {
	if got := GrossFromNet(100, 0.15); got != 115 {
		t.Errorf("GrossFromNet(100, 0.15) = %v, want 115", got)
	}
	if got := GrossFromNet(99.99, 0.15); got != 114.99 {
		t.Errorf("GrossFromNet(99.99, 0.15) = %v, want 114.99", got)
	}
	if got := GrossFromNet(100, 0); got != 100 {
		t.Errorf("GrossFromNet(100, 0) = %v, want 100", got)
	}
}

func TestVATFromNet(t *testing.T) {
	if got := VATFromNet(200, 0.15); got != 30 {
		t.Errorf("VATFromNet(200, 0.15) = %v, want 30", got)
	}
}

func TestLineTotalAndSum(t *testing.T) {
	if got := LineTotal(0.1, 3); got != 0.3 {
		t.Errorf("LineTotal(0.1, 3) = %v, want 0.3", got)
	}
	if got := Sum(0.1, 0.2, 0.3); got != 0.6 {
		t.Errorf("Sum(0.1, 0.2, 0.3) = %v, want 0.6", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     string
	}{
		{1250, "SAR", "1,250.00 ر.س"},
		{999.5, "PKR", "999.50 ₨"},
		{1234567.89, "USD", "1,234,567.89 $"},
		{10, "AED", "10.00 AED"},
	}
	for _, tt := range tests {
		if got := Format(tt.amount, tt.currency); got != tt.want {
			t.Errorf("Format(%v, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}
