package validator

import "testing"

func TestValidConversionName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"thumb", true},
		{"thumb_2x", true},
		{"web-large", true},
		{"", false},
		{"Thumb", false},
		{"thumb/large", false},
		{"..", false},
		{"origin", false},
		{"srcset", false},
	}
	for _, tt := range tests {
		if got := ValidConversionName(tt.name); got != tt.want {
			t.Errorf("ValidConversionName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	name, ok := SanitizeConversionName("  avatar ")
	if !ok || name != "avatar" {
		t.Errorf("SanitizeConversionName = %q, %v", name, ok)
	}
}
