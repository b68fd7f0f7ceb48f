package ginsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKey(t *testing.T) {
	const rev = "4fa7e1bdcbee03b45250a4f9d35a15720c10c6ac"

	t.Run("identical inputs produce identical keys", func(t *testing.T) {
		a := BuildKey(1, "", "ecephys", rev)
		b := BuildKey(1, "", "ecephys", rev)
		assert.Equal(t, a, b)
	})

	t.Run("every input changes the key", func(t *testing.T) {
		base := BuildKey(1, "", "ecephys", rev).Value
		assert.NotEqual(t, base, BuildKey(2, "", "ecephys", rev).Value)
		assert.NotEqual(t, base, BuildKey(1, "", "ophys", rev).Value)
		assert.NotEqual(t, base, BuildKey(1, "", "ecephys", strings.Repeat("0", 40)).Value)
		assert.NotEqual(t, base, BuildKey(1, "linux", "ecephys", rev).Value)
	})

	t.Run("restore keys are prefixes ordered most specific first", func(t *testing.T) {
		key := BuildKey(3, "", "ecephys", rev)
		require.Len(t, key.RestoreKeys, 2)
		assert.Equal(t, "ecephys-v3-", key.RestoreKeys[0])
		assert.Equal(t, "ecephys-", key.RestoreKeys[1])
		for _, rk := range key.RestoreKeys {
			assert.True(t, strings.HasPrefix(key.Value, rk), "restore key %q is not a prefix of %q", rk, key.Value)
		}
	})

	t.Run("scope segments the whole key", func(t *testing.T) {
		key := BuildKey(1, "linux", "ecephys", rev)
		assert.Equal(t, "linux-ecephys-v1-", key.RestoreKeys[0])
		assert.Equal(t, "linux-ecephys-", key.RestoreKeys[1])
		assert.True(t, strings.HasPrefix(key.Value, "linux-ecephys-v1-"))
	})

	t.Run("digest segment is a full sha256", func(t *testing.T) {
		key := BuildKey(1, "", "ecephys", rev)
		sum := strings.TrimPrefix(key.Value, key.RestoreKeys[0])
		assert.Len(t, sum, 64)
		assert.NotContains(t, sum, "-")
	})
}
