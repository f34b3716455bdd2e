package secrets

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents startup configuration that cannot be used.
type ValidationError struct {
	Empty   []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid URLs in environment variables: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Validate checks that required values are non-empty and that optional URLs,
// when set, are absolute with a scheme and host.
func Validate(required map[string]string, optionalURLs map[string]string) error {
	var empty, invalid []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	for key, raw := range optionalURLs {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, key)
		}
	}
	if len(empty) == 0 && len(invalid) == 0 {
		return nil
	}
	sort.Strings(empty)
	sort.Strings(invalid)
	return &ValidationError{Empty: empty, Invalid: invalid}
}
