package options

import "fmt"

type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func clamp[T any](ac *AnomalyCollector, field, reason string, actual *T, fallback T) {
	ac.add(field, reason, *actual, fallback)
	*actual = fallback
}

// CheckNotNegative records an anomaly and falls back when the value is
// negative.
func CheckNotNegative[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	if *actual < 0 {
		clamp(ac, field, "cannot be negative", actual, fallback)
	}
}

// CheckNotZero records an anomaly and falls back when the value is zero.
func CheckNotZero[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	if *actual == 0 {
		clamp(ac, field, "cannot be zero", actual, fallback)
	}
}

// CheckNotLower records an anomaly and raises the value to the target
// when it is below it.
func CheckNotLower[T ordered](ac *AnomalyCollector, field string, actual *T, target T) {
	if *actual < target {
		clamp(ac, field, fmt.Sprintf("cannot be lower than %v", target), actual, target)
	}
}

// CheckNotEmpty records an anomaly and falls back when the string is
// empty.
func CheckNotEmpty(ac *AnomalyCollector, field string, actual *string, fallback string) {
	if *actual == "" {
		clamp(ac, field, "cannot be empty", actual, fallback)
	}
}

// CheckLen records an anomaly and falls back when the slice is empty.
func CheckLen[T any](ac *AnomalyCollector, field string, actual *[]T, fallback []T) {
	if len(*actual) == 0 {
		clamp(ac, field, "cannot be empty", actual, fallback)
	}
}
