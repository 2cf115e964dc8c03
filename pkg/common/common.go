package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// ReadableSize renders a byte count with 1024-based units, e.g. 1536 -> "1.5 KB".
func ReadableSize(bytes int64, precision int) string {
	if bytes <= 0 {
		return "0 " + sizeUnits[0]
	}
	exponent := 0
	for n := bytes; n >= 1024 && exponent < len(sizeUnits)-1; n /= 1024 {
		exponent++
	}
	value := float64(bytes) / math.Pow(1024, float64(exponent))
	return strconv.FormatFloat(roundTo(value, precision), 'f', -1, 64) + " " + sizeUnits[exponent]
}

func roundTo(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// FormatDimensions renders pixel dimensions as "WxH".
func FormatDimensions(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// ParseDimensions reads a "WxH" string. ok is false for "", "autoxauto" and
// anything else that is not two positive integers.
func ParseDimensions(value string) (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// DimensionWidth returns the width segment of a "WxH" string, "auto" when unknown.
func DimensionWidth(value string) string {
	if value == "" {
		return "auto"
	}
	w, _, _ := strings.Cut(value, "x")
	if w == "" {
		return "auto"
	}
	return w
}
