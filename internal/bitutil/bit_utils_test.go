package bitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFFS32(t *testing.T) {
	assert.Equal(t, -1, FFS32(0))
	assert.Equal(t, 0, FFS32(0b1))
	assert.Equal(t, 1, FFS32(0b10))
	assert.Equal(t, 4, FFS32(0b10000))
	assert.Equal(t, 0, FFS32(0xFFFFFFFF))
}

func TestFLS32(t *testing.T) {
	assert.Equal(t, -1, FLS32(0))
	assert.Equal(t, 0, FLS32(0b1))
	assert.Equal(t, 3, FLS32(0b1011))
	assert.Equal(t, 31, FLS32(0x80000000))
	assert.Equal(t, 31, FLS32(0xFFFFFFFF))
}
