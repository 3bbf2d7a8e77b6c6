package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")

	// Test if memcached is available
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("jorei_test_key", []byte("600"), 2*time.Second)
	require.NoError(t, err)

	value, err := mc.Get("jorei_test_key")
	assert.NoError(t, err)
	assert.Equal(t, "600", string(value))

	assert.NoError(t, mc.Delete("jorei_test_key"))
	assert.NoError(t, mc.Delete("jorei_test_key"))

	_, err = mc.Get("jorei_test_key")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemcacheService_Unreachable(t *testing.T) {
	mc := NewMemcacheService("127.0.0.1:1")

	_, err := mc.Get("jorei_test_key")
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeCache))

	err = mc.Set("jorei_test_key", []byte("1"), time.Second)
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeCache))
}
