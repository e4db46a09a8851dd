package auth

import (
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// PublicKeySet builds a JWK set containing the public halves of the given key pairs.
// Only the access pair is normally published; refresh tokens are verified by the gateway alone.
func PublicKeySet(pairs ...*KeyPair) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, kp := range pairs {
		if kp == nil || kp.Public == nil {
			return nil, errors.New("building key set: missing public key")
		}

		key, err := jwk.FromRaw(kp.Public)
		if err != nil {
			return nil, fmt.Errorf("converting public key: %w", err)
		}
		kid := kp.ID
		if kid == "" {
			kid = KeyID(kp.Public)
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("setting kid: %w", err)
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, fmt.Errorf("setting alg: %w", err)
		}
		if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, fmt.Errorf("setting use: %w", err)
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("adding key: %w", err)
		}
	}
	return set, nil
}
