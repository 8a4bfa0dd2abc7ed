// Package utils contains small, dependency-free helpers shared across the
// HTTP layer.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the input is empty or invalid, it returns the provided default.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ParseInt64Default converts a string to an int64, returning the provided
// default on empty or invalid input.
func ParseInt64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
