package sdk

import (
	"strings"
)

const secretKeyPrefix = "tl_sk_"

// APIKeyKind distinguishes the key families accepted by the API.
type APIKeyKind string

const (
	// APIKeyKindSecret identifies server-side secret keys (tl_sk_*).
	APIKeyKindSecret APIKeyKind = "secret"
)

// APIKeyAuth is a validated API key of any supported kind. Construct one
// with ParseAPIKeyAuth or ParseSecretKey.
type APIKeyAuth interface {
	apiKeyAuth()
	Kind() APIKeyKind
	String() string
}

// SecretKey is a server-side key (tl_sk_*). It grants full access to the
// owning project and must stay out of client-facing binaries.
type SecretKey string

func (k SecretKey) apiKeyAuth()      {}
func (k SecretKey) Kind() APIKeyKind { return APIKeyKindSecret }
func (k SecretKey) String() string   { return string(k) }

// ParseSecretKey validates a secret key. Surrounding whitespace is trimmed
// so keys read from env vars or files parse cleanly.
func ParseSecretKey(raw string) (SecretKey, error) {
	key := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(key, secretKeyPrefix); !ok || rest == "" {
		return "", ConfigError{Reason: `api key must look like "tl_sk_..."`}
	}
	return SecretKey(key), nil
}

// ParseAPIKeyAuth validates an API key of any supported kind. Secret keys
// are currently the only kind the platform issues.
func ParseAPIKeyAuth(raw string) (APIKeyAuth, error) {
	key, err := ParseSecretKey(raw)
	if err != nil {
		return nil, err
	}
	return key, nil
}
