package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed variables and records the names of missing or
// unparsable ones so Load can report them all at once.
type envReader struct {
	missing []string
	invalid []string
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// required returns the value of key, recording it as missing when empty.
func (r *envReader) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *envReader) integer(key string, def, lo int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo {
		r.invalid = append(r.invalid, key)
		return def
	}
	return n
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return d
}

func (r *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, ok := parseBool(v)
	if !ok {
		r.invalid = append(r.invalid, key)
		return def
	}
	return b
}

func (r *envReader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(r.str(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	r.invalid = append(r.invalid, key)
	return def
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// Lenient helpers for the optional middleware settings: a bad value falls
// back to the default instead of failing startup.

func envStr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	if b, ok := parseBool(strings.TrimSpace(os.Getenv(k))); ok {
		return b
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
		return dur
	}
	return d
}
