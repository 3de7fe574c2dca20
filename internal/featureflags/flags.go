package featureflags

import (
	"os"
	"strings"
)

// ServerEmailValidation makes the service reject malformed emails on create and update.
// Off by default: email format is otherwise checked by the directory client only.
const ServerEmailValidation = "server_email_validation"

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
