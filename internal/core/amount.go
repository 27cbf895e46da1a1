// Package core holds the domain types shared by the backend handlers, the
// API client and the terminal UI.
//
// This file contains amount coercion helpers. Amounts travel over the wire
// as whatever the caller sent (number or string) and are stored as decimal
// strings; anything unparsable degrades to 0 rather than failing the row.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseAmount converts a cell value to a float64, accepting both dot and
// comma decimal separators. Unparsable input yields 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// CoerceAmount normalizes a decoded JSON value (number, string or absent)
// to a float64, defaulting to 0 when coercion fails.
func CoerceAmount(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		return ParseAmount(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// FormatAmount renders an amount the way it is written into a row: the
// shortest decimal representation round-tripping the value.
func FormatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
