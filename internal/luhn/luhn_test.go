package luhn

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		digits string
		want   bool
	}{
		{"valid visa test number", "4242424242424242", true},
		{"valid visa", "4111111111111111", true},
		{"valid short number", "79927398713", true},
		{"one digit off", "79927398714", false},
		{"all zeros pass the checksum", "0000000000000000", true},
		{"empty string", "", false},
		{"non-digit characters", "4242 4242 4242 4242", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.digits); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.digits, got, tt.want)
			}
		})
	}
}

func TestValidCardNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain digits", "4242424242424242", true},
		{"space separated", "4242 4242 4242 4242", true},
		{"dash separated", "4242-4242-4242-4242", true},
		{"bad checksum", "4242424242424241", false},
		{"too short", "424242424242", false},
		{"too long", "42424242424242424242", false},
		{"letters disqualify", "4242x4242x4242x4242", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCardNumber(tt.in); got != tt.want {
				t.Errorf("ValidCardNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
