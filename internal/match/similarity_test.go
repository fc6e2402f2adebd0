package match

import (
	"math"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"email", "", 5},
		{"email", "email", 0},
		{"emial", "email", 2},
		{"e_mail", "email", 1},
		{"quantity", "qty", 5},
		{"straße", "strasse", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := Levenshtein(tt.a, tt.b); got != tt.want {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}

			if got := Levenshtein(tt.b, tt.a); got != tt.want {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestKeyScore(t *testing.T) {
	tests := []struct {
		key, name string
		want      float64
	}{
		{"customer_id", "customerId", 1},
		{"customer_id", "customer", 1},
		{"Created-At", "createdAt", 1},
		{"emial", "email", 0.6},
		{"zzzzzz", "email", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key+"/"+tt.name, func(t *testing.T) {
			if got := KeyScore(tt.key, tt.name); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("KeyScore(%q, %q) = %f, want %f", tt.key, tt.name, got, tt.want)
			}
		})
	}

	if KeyScore("customerName", "customerId") >= KeyScore("customer", "customerId") {
		t.Error("a differently named key must score below the bare entity name")
	}
}

func BenchmarkKeyScore(b *testing.B) {
	for b.Loop() {
		KeyScore("shippingAddressLine", "shipping_address_line_2")
	}
}
