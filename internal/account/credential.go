// Package account resolves the viewer's credentials and edits their global
// profile.
package account

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrCredentialNotFound is returned when a credential reference resolves to
// nothing.
var ErrCredentialNotFound = errors.New("credential not found")

// ResolveCredential turns a credential reference into its value. Supported
// forms are env:NAME, $NAME, ${NAME}, file:/path and a literal value.
func ResolveCredential(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrCredentialNotFound)
	}

	switch {
	case strings.HasPrefix(ref, "env:"):
		return lookupEnv(strings.TrimPrefix(ref, "env:"))
	case strings.HasPrefix(ref, "${") && strings.HasSuffix(ref, "}"):
		return lookupEnv(ref[2 : len(ref)-1])
	case strings.HasPrefix(ref, "$"):
		return lookupEnv(ref[1:])
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read credential file %s: %w", path, err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return "", fmt.Errorf("%w: %s is empty", ErrCredentialNotFound, path)
		}
		return value, nil
	default:
		return ref, nil
	}
}

func lookupEnv(name string) (string, error) {
	name = strings.TrimSpace(name)
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrCredentialNotFound, name)
	}
	return strings.TrimSpace(value), nil
}
