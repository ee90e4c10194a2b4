package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/datarhei/settings/validate"
)

// Error is the body of every failed request. Fields holds the messages of
// rejected settings, keyed by field path.
type Error struct {
	Code    int               `json:"code" jsonschema:"required" format:"int"`
	Message string            `json:"message" jsonschema:""`
	Details []string          `json:"details" jsonschema:""`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%d %s: %s", e.Code, e.Message, strings.Join(e.Details, "; "))
}

// Err returns an error with the status code. An empty message is replaced
// by the status text. A format string in args[0] with its arguments becomes
// the details, one entry per line.
func Err(code int, message string, args ...interface{}) Error {
	if len(message) == 0 {
		message = http.StatusText(code)
	}

	e := Error{
		Code:    code,
		Message: message,
		Details: []string{},
	}

	if len(args) >= 1 {
		if format, ok := args[0].(string); ok {
			e.Details = strings.Split(fmt.Sprintf(format, args[1:]...), "\n")
		}
	}

	return e
}

// ErrInvalid returns an error for rejected settings. Every field path of
// the result is listed in the details in sorted order.
func ErrInvalid(code int, message string, result validate.Result) Error {
	e := Err(code, message)

	e.Fields = map[string]string{}

	for _, path := range result.Paths() {
		e.Details = append(e.Details, path+": "+result.Errors[path])
		e.Fields[path] = result.Errors[path]
	}

	return e
}
