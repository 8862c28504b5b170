package opengl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuadIndices(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}, quadIndices(2))
	assert.Empty(t, quadIndices(0))
}
