package db

import (
	"fmt"
	"regexp"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidSchema rejects schema names that cannot be interpolated into SQL
// unquoted.
func ValidSchema(name string) error {
	if !schemaPattern.MatchString(name) {
		return fmt.Errorf("db: invalid schema name %q", name)
	}
	return nil
}
