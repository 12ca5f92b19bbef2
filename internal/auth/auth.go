package auth

import (
	"context"
	"fmt"
	"strings"
)

// Identity names the authenticated API client.
type Identity struct {
	User string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves identities from a fixed key set parsed out
// of configuration.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses a comma-separated list of key:user pairs.
// An empty spec yields a validator that rejects every key.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	entries := strings.Split(spec, ",")
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:user", entry)
		}
		key := strings.TrimSpace(parts[0])
		user := strings.TrimSpace(parts[1])
		if key == "" || user == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/user", entry)
		}
		validator.keys[key] = Identity{User: user}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
