package shared

import (
	"regexp"
)

const redactedPlaceholder = "[REDACTED]"

// secretPatterns matches the credential shapes this bridge actually
// handles, so they never reach a log line or error string unredacted.
var secretPatterns = []*regexp.Regexp{
	// econ/nats password|token|nkey|secret assignments, e.g. "password: hunter2".
	regexp.MustCompile(`(?i)(password|token|nkey|secret)\s*[:=]\s*"?([^\s"]{4,})"?`),
	// credentials embedded in a nats:// connection string (user:pass@host).
	regexp.MustCompile(`(nats://)([^:/@\s]+):([^@\s]+)@`),
	// NATS nkey seed (user/account seeds both start with a single capital
	// letter; "SU" covers the user seeds this bridge authenticates with).
	regexp.MustCompile(`\bSU[A-Z0-9]{50,}\b`),
	// Telegram bot API tokens ("123456789:AA...").
	regexp.MustCompile(`\b\d{6,10}:[A-Za-z0-9_-]{30,45}\b`),
}

// Redact replaces secret-bearing patterns in the input string with [REDACTED].
func Redact(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			submatch := pat.FindStringSubmatch(match)
			switch len(submatch) {
			case 4:
				// nats://user:pass@ — keep scheme and user, redact the password.
				return submatch[1] + submatch[2] + ":" + redactedPlaceholder + "@"
			case 3:
				return submatch[1] + redactedPlaceholder
			default:
				return redactedPlaceholder
			}
		})
	}
	return result
}
