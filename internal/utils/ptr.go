package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

// OrZero dereferences v, or returns the zero value for nil.
func OrZero[T any](v *T) T {
	var zero T
	return ValueOr(v, zero)
}

// ValueOr dereferences v, or returns fallback for nil. Optional request
// fields use it to apply their defaults.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// StringOrNil trims s and returns nil when nothing is left, so blank
// optional text is stored as NULL.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
