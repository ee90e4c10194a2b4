package validate

import (
	"fmt"
	"strings"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/glob"
)

// message translates a failing field path into the message reported to the
// user. Patterns are globs with '.' as separator. With parent set, the error
// is reported at the parent of the matched path.
type message struct {
	pattern glob.Glob
	text    func(path []string) string
	parent  bool
}

func text(s string) func([]string) string {
	return func([]string) string {
		return s
	}
}

func rule(pattern string, s string) message {
	return message{
		pattern: glob.MustCompile(pattern, '.'),
		text:    text(s),
	}
}

var messages = map[document.Section][]message{
	document.General: {
		rule("hotelName", "Hotel name must be at least 2 characters"),
		rule("email", "Please enter a valid email address"),
		rule("phone", "Please enter a valid phone number"),
		rule("starRating", "Star rating must be between 1 and 5"),
		rule("maxOccupancy", "Max occupancy must be between 1 and 20"),
	},
	document.Forms: {
		{
			pattern: glob.MustCompile("*.fields", '.'),
			text:    text("Fields must be an array"),
			parent:  true,
		},
		rule("*", "Fields must be an array"),
		rule("*.fields.*.name", "Field name is required"),
		rule("*.fields.*.key", "Field key is required"),
		rule("*.fields.*.type", "Invalid field type"),
		rule("*.fields.*.required", "Field required flag must be a boolean"),
		rule("*.fields.*", "Field must be an object"),
	},
	document.Notifications: {
		{
			pattern: glob.MustCompile("{email,sms,push}", '.'),
			text: func(path []string) string {
				return fmt.Sprintf("%s settings must be an object", path[0])
			},
		},
		{
			pattern: glob.MustCompile("*.*", '.'),
			text: func(path []string) string {
				return fmt.Sprintf("%s must be a boolean value", path[len(path)-1])
			},
		},
	},
	document.Security: {
		rule("twoFactorAuth", "Two-factor auth must be a boolean"),
		rule("sessionTimeout", "Session timeout must be between 5 and 480 minutes"),
		rule("loginAttempts", "Login attempts must be between 3 and 10"),
		rule("passwordPolicy.minLength", "Password length must be between 6 and 50 characters"),
		rule("passwordPolicy", "Password policy must be an object"),
	},
	document.Appearance: {
		rule("primaryColor", "Primary color must be a valid hex color"),
		rule("theme", "Theme must be light, dark, or auto"),
	},
	document.Language: {
		rule("defaultLanguage", "Default language must be en, fr, or ar"),
		rule("currency", "Invalid currency code"),
	},
}

// translate returns the reported path and message for an error at the given
// path. If no rule matches, ok is false.
func translate(section document.Section, path string) (string, string, bool) {
	for _, m := range messages[section] {
		if !m.pattern.Match(path) {
			continue
		}

		elements := strings.Split(path, ".")
		msg := m.text(elements)

		if m.parent && len(elements) > 1 {
			path = strings.Join(elements[:len(elements)-1], ".")
		}

		return path, msg, true
	}

	return path, "", false
}
