package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable, or fallback when
// the variable is unset or blank.
func Get(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
