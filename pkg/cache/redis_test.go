package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromURI(t *testing.T) {
	opts, err := Options("redis://:pw@cache:6380/2", Config{MaxPoolSize: 7, ReadTimeout: 3})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestOptionsFallsBackToConfig(t *testing.T) {
	opts, err := Options("", Config{Addr: "localhost:6379", Password: "x", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "x", opts.Password)
	assert.Equal(t, 1, opts.DB)

	opts, err = Options("redis://localhost:6379/0", Config{Password: "fromcfg"})
	require.NoError(t, err)
	assert.Equal(t, "fromcfg", opts.Password)
}

func TestOptionsRejectsBadURI(t *testing.T) {
	_, err := Options("memcached://x", Config{})
	assert.Error(t, err)
}
