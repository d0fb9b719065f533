package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "")
	assert.Error(t, err)

	_, err = NewRedisCache(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "parse url")
}
