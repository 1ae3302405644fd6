package tracing

import (
	"errors"
	"regexp"
)

var secretPattern = regexp.MustCompile(`(?i)(password|secret|token|key)=\S+`)

// SafeError strips credential-looking fragments before an error is exported.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(secretPattern.ReplaceAllString(err.Error(), "$1=[redacted]"))
}
