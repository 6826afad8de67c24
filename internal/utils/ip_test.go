package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedIP(t *testing.T) {
	cidrs := []string{"127.0.0.0/8", "not-a-cidr", "2a02:5180::/32"}

	assert.True(t, IsAllowedIP("127.0.0.1", cidrs))
	assert.True(t, IsAllowedIP("2a02:5180::1", cidrs))
	assert.False(t, IsAllowedIP("8.8.8.8", cidrs))
	assert.False(t, IsAllowedIP("garbage", cidrs))
	assert.False(t, IsAllowedIP("127.0.0.1", nil))
}
