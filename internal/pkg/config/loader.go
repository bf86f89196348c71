// Package config loads operational settings from the environment with a
// fail-open policy: an invalid value falls back to the default and produces a
// warning instead of an error, so a typo in a tuning knob never stops a
// process from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one setting.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// Load reads envKey, parses it and validates it. An unset or blank variable
// yields def without a warning. A parse or validation failure yields def with
// FallbackApplied set. validate may be nil.
func Load[T any](envKey string, def T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return Result[T]{
			Value:           def,
			Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", envKey, raw, err, def),
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: v}
}

// LoadString loads a string setting.
func LoadString(envKey, def string, validate func(string) error) Result[string] {
	return Load(envKey, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadInt loads an integer setting.
func LoadInt(envKey string, def int, validate func(int) error) Result[int] {
	return Load(envKey, def, strconv.Atoi, validate)
}

// LoadDuration loads a Go duration string such as "90s" or "5m".
func LoadDuration(envKey string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	return Load(envKey, def, time.ParseDuration, validate)
}

// LoadBool loads a boolean accepted by strconv.ParseBool.
func LoadBool(envKey string, def bool) Result[bool] {
	return Load(envKey, def, strconv.ParseBool, nil)
}
