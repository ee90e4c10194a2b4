// Package cors validates the origins that are allowed to access the API
package cors

import (
	"fmt"
	"strings"
)

// Schemas are the schemas an origin without wildcard has to start with
var Schemas = []string{
	"http://",
	"https://",
}

// Validate checks that every origin is either a pattern containing '*' or
// an URL with one of the allowed schemas.
func Validate(origins []string) error {
	for _, origin := range origins {
		if len(origin) == 0 {
			return fmt.Errorf("empty origin")
		}

		if strings.Contains(origin, "*") {
			continue
		}

		if !hasSchema(origin) {
			return fmt.Errorf("bad origin '%s': must contain '*' or start with %s", origin, strings.Join(Schemas, " or "))
		}
	}

	return nil
}

func hasSchema(origin string) bool {
	for _, schema := range Schemas {
		if strings.HasPrefix(origin, schema) {
			return true
		}
	}

	return false
}
