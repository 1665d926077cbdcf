package logging

import (
	"net/url"
	"regexp"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

var dsnPassword = regexp.MustCompile(`(?i)(password=)\S+`) //nolint:gochecknoglobals // compiled once

// RedactURL hides the password of a connection URL or key=value DSN so it
// can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), RedactedValue)
			return u.String()
		}
		return raw
	}
	return dsnPassword.ReplaceAllString(raw, "${1}"+RedactedValue)
}
