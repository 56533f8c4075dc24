package logger

import "strings"

// RedactEmail masks the local part of an address so process logs never
// carry a full recipient: "jane.doe@acme.com" becomes "ja***@acme.com".
// Local parts of two characters or fewer are masked entirely, and
// anything that does not look like an address collapses to "***@***".
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	local, host := parts[0], parts[1]
	if len(local) <= 2 {
		return "***@" + host
	}
	return local[:2] + "***@" + host
}
