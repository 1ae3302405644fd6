package domain

import "testing"

func TestStrength(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"", StrengthWeak},
		{"password", StrengthWeak},
		{"passw0rd", StrengthFair},
		{"Summer2026", StrengthFair},
		{"Correct-Horse-9", StrengthStrong},
		{"ALLUPPERCASE123456", StrengthFair},
	}
	for _, tt := range tests {
		if got := Strength(tt.password); got != tt.want {
			t.Fatalf("Strength(%q) = %s, want %s", tt.password, got, tt.want)
		}
	}
}
