package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whatif-grades-api/pkg/config"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), config.RedisConfig{Host: mr.Host(), Port: cast.ToInt(mr.Port())})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, mr.Addr(), client.Options().Addr)

	host, port := mr.Host(), cast.ToInt(mr.Port())
	mr.Close()
	_, err = NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}
