package logging

import (
	"io"
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"credential",
	"recovery_key",
	"passphrase",
}

// Patterns for secrets that should be redacted.
var secretPatterns = []*regexp.Regexp{
	// Synapse access and refresh tokens
	regexp.MustCompile(`(syt_[a-zA-Z0-9_]{10,})`),
	regexp.MustCompile(`(syr_[a-zA-Z0-9_]{10,})`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	// access_token query parameters on media and client URLs
	regexp.MustCompile(`(?i)access_token=[^&\s"]+`),

	// Generic long strings that look like secrets
	regexp.MustCompile(`(?i)(key|token|secret|password|auth)[=:]["']?([a-zA-Z0-9+/=_-]{32,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a map, such as a settings dump.
func RedactMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))

	for k, v := range m {
		if IsSensitiveField(k) {
			result[k] = RedactedValue
		} else if nested, ok := v.(map[string]interface{}); ok {
			result[k] = RedactMap(nested)
		} else if str, ok := v.(string); ok {
			result[k] = Redact(str)
		} else {
			result[k] = v
		}
	}

	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}

// RedactingWriter scrubs secrets from every log line before writing it.
type RedactingWriter struct {
	Out io.Writer
}

func (w RedactingWriter) Write(p []byte) (int, error) {
	redacted := Redact(string(p))
	if _, err := io.WriteString(w.Out, redacted); err != nil {
		return 0, err
	}
	// Report the original length so zerolog does not treat it as a short write.
	return len(p), nil
}
