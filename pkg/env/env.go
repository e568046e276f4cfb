// Package env reads raw process environment. Configuration proper goes
// through pkg/config; this is for the couple of knobs consulted before
// config is loaded, like LOG_FORMAT in the logger.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
