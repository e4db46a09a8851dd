package auth_test

import (
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/internal/auth"
)

func TestPublicKeySet(t *testing.T) {
	keys := loadTestKeys(t)

	set, err := auth.PublicKeySet(keys.Access)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	key, ok := set.LookupKeyID(keys.Access.ID)
	require.True(t, ok)
	assert.Equal(t, jwa.RS256.String(), key.Algorithm().String())

	var pub rsa.PublicKey
	require.NoError(t, key.Raw(&pub))
	assert.True(t, keys.Access.Public.Equal(&pub))

	_, ok = set.LookupKeyID(keys.Refresh.ID)
	assert.False(t, ok, "refresh key must not be published")

	_, hasPrivate := key.(interface{ D() []byte })
	assert.False(t, hasPrivate)
}

func TestPublicKeySet_MissingKey(t *testing.T) {
	_, err := auth.PublicKeySet(nil)
	assert.Error(t, err)
}

func TestPublicKeySet_JSONDocument(t *testing.T) {
	keys := loadTestKeys(t)

	set, err := auth.PublicKeySet(keys.Access)
	require.NoError(t, err)

	raw, err := json.Marshal(set)
	require.NoError(t, err)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, "RSA", doc.Keys[0]["kty"])
	assert.Equal(t, "RS256", doc.Keys[0]["alg"])
	assert.Equal(t, "sig", doc.Keys[0]["use"])
	assert.Equal(t, keys.Access.ID, doc.Keys[0]["kid"])
	assert.NotContains(t, doc.Keys[0], "d")
}
