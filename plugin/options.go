package plugin

import (
	"fmt"
	"strconv"
	"time"
)

// Options is the option set handed to a plugin's Configure method.
// Keys a plugin does not recognize are ignored, so the same option list
// can be shared between cooperating stages.
type Options map[string]string

// Has states whether the option is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the option value, or the fallback when absent.
func (o Options) String(key, fallback string) string {
	if val, ok := o[key]; ok {
		return val
	}

	return fallback
}

// Int returns the option parsed as an int, or the fallback when absent.
func (o Options) Int(key string, fallback int) (int, error) {
	val, ok := o[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("option %q: invalid integer %q", key, val)
	}

	return parsed, nil
}

// Uint64 returns the option parsed as a uint64, or the fallback when absent.
func (o Options) Uint64(key string, fallback uint64) (uint64, error) {
	val, ok := o[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("option %q: invalid unsigned integer %q", key, val)
	}

	return parsed, nil
}

// Bool returns the option parsed as a bool, or the fallback when absent.
// A bare key with an empty value counts as true.
func (o Options) Bool(key string, fallback bool) (bool, error) {
	val, ok := o[key]
	if !ok {
		return fallback, nil
	}

	if val == "" {
		return true, nil
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback, fmt.Errorf("option %q: invalid boolean %q", key, val)
	}

	return parsed, nil
}

// Duration returns the option parsed as a duration, or the fallback when absent.
func (o Options) Duration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := o[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("option %q: invalid duration %q", key, val)
	}

	return parsed, nil
}
