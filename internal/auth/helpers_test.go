package auth_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/internal/auth"
)

var (
	keysOnce    sync.Once
	testKeys    auth.Keys
	testKeysErr error
)

// loadTestKeys generates one access and one refresh pair per test binary.
func loadTestKeys(t *testing.T) auth.Keys {
	t.Helper()
	keysOnce.Do(func() {
		testKeys.Access, testKeysErr = auth.GenerateKeyPair(2048)
		if testKeysErr != nil {
			return
		}
		testKeys.Refresh, testKeysErr = auth.GenerateKeyPair(2048)
	})
	require.NoError(t, testKeysErr)
	return testKeys
}
