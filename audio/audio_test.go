package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockCount(t *testing.T) {
	tests := []struct {
		bufferLenMs int
		want        int
	}{
		{10, 2},
		{40, 2},
		{100, 2},
		{101, 3},
		{132, 4},
		{198, 5},
		{200, 5},
		{330, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BlockCount(tt.bufferLenMs), "bufferLenMs=%d", tt.bufferLenMs)
	}
}
