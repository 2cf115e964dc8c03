package validator

import (
	"regexp"
	"strings"
)

// reservedNames can never be used as conversion names.
var reservedNames = map[string]bool{
	"origin": true,
	"srcset": true,
}

// conversionNameRegexp: lowercase letters, numbers, underscores and hyphens,
// 1-64 characters. Names end up as path segments on every disk.
var conversionNameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidConversionName reports whether name can be registered as a
// conversion.
func ValidConversionName(name string) bool {
	if reservedNames[name] {
		return false
	}
	return conversionNameRegexp.MatchString(name)
}

// SanitizeConversionName trims whitespace and validates the name.
func SanitizeConversionName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	return trimmed, ValidConversionName(trimmed)
}
