package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowCountsBurst(t *testing.T) {
	start := time.Unix(1700000000, 0)
	window := NewSlidingWindow(5 * time.Second)

	for i := 1; i <= 4; i++ {
		assert.Equal(t, i, window.Add(start.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, 4, window.Count(start.Add(5*time.Second)))
	// the event at +1s falls out exactly at +6s
	assert.Equal(t, 3, window.Count(start.Add(6*time.Second)))
	assert.Equal(t, 0, window.Count(start.Add(time.Minute)))
	assert.Equal(t, 1, window.Add(start.Add(time.Minute)))
}
