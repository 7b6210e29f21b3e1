package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// BasicCredentials carries the email/password pair of a Basic header.
type BasicCredentials struct {
	Email    string
	Password string
}

// ParseBasic decodes an `Authorization: Basic <base64(email:password)>` header.
func ParseBasic(header string) (BasicCredentials, error) {
	token, err := splitScheme(header, "basic")
	if err != nil {
		return BasicCredentials{}, err
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return BasicCredentials{}, fmt.Errorf("%w: invalid base64", ErrMalformedCredential)
	}

	fields := strings.SplitN(string(decoded), ":", 2)
	if len(fields) != 2 {
		return BasicCredentials{}, fmt.Errorf("%w: expected email:password", ErrMalformedCredential)
	}
	return BasicCredentials{Email: fields[0], Password: fields[1]}, nil
}

// ParseBearer returns the raw token of an `Authorization: Bearer <token>` header.
// The token is not verified here.
func ParseBearer(header string) (string, error) {
	return splitScheme(header, "bearer")
}

// splitScheme requires exactly "<scheme> <value>" with a single separating space.
func splitScheme(header, scheme string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected %q scheme and value", ErrMalformedCredential, scheme)
	}
	if !strings.EqualFold(parts[0], scheme) {
		return "", fmt.Errorf("%w: unexpected scheme", ErrMalformedCredential)
	}
	if parts[1] == "" {
		return "", fmt.Errorf("%w: empty credential", ErrMalformedCredential)
	}
	return parts[1], nil
}
