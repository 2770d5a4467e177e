package paths

import (
	"fmt"
	"regexp"
)

// Principals are IC principal texts: lowercase base32 groups joined by
// dashes. The pattern is deliberately loose about group lengths; its job is
// to keep path traversal and shell junk out of database file names.
var principalRegexp = regexp.MustCompile(`^[a-z0-9-]{5,63}$`)

// ValidatePrincipal checks that a principal is safe to embed in a file name.
func ValidatePrincipal(principal string) error {
	if !principalRegexp.MatchString(principal) {
		return fmt.Errorf("invalid principal %q", principal)
	}
	return nil
}
