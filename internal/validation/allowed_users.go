// Package validation contains input validation for catalog access fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinUsernameLength and MaxUsernameLength bound allow-list entries.
	MinUsernameLength = 2
	MaxUsernameLength = 100
)

var usernamePattern = regexp.MustCompile(`^[\w \-.]+$`)

// ValidateAllowedUser checks a single allow-list entry.
func ValidateAllowedUser(name string) error {
	if len(name) < MinUsernameLength {
		return fmt.Errorf("allowed user %q is shorter than minimum %d", name, MinUsernameLength)
	}
	if len(name) > MaxUsernameLength {
		return fmt.Errorf("allowed user %q is longer than maximum %d", name, MaxUsernameLength)
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("allowed user %q can only contain alphanumeric characters, "+
			"spaces (\" \"), hyphens (\"-\"), underscores (\"_\") or dots (\".\")", name)
	}
	return nil
}

// ParseAllowedUsers accepts either a comma-separated string or an already
// split list, trims and drops blank entries, and validates each username.
// The editor UI historically submitted the allow-list as one comma-joined
// field, so both shapes are accepted at the boundary.
func ParseAllowedUsers(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	users := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if err := ValidateAllowedUser(name); err != nil {
			return nil, err
		}
		users = append(users, name)
	}
	return users, nil
}

// NormalizeAllowedUsers validates a pre-split list, dropping blanks.
func NormalizeAllowedUsers(raw []string) ([]string, error) {
	users := make([]string, 0, len(raw))
	for _, entry := range raw {
		name := strings.TrimSpace(entry)
		if name == "" {
			continue
		}
		if err := ValidateAllowedUser(name); err != nil {
			return nil, err
		}
		users = append(users, name)
	}
	return users, nil
}
