package profiler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	p := NewProfiler(time.Second)
	var lines []string
	p.logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	start := p.lastTime

	assert.Nil(t, p.tick(FrameStats{Views: 2, Items: 1, Duration: 2 * time.Millisecond}, start.Add(400*time.Millisecond)))
	r := p.tick(FrameStats{Views: 2, Items: 3, Duration: 4 * time.Millisecond}, start.Add(time.Second))

	require.NotNil(t, r)
	assert.InDelta(t, 2, r.FPS, 1e-9)
	assert.Equal(t, 3*time.Millisecond, r.AvgFrame)
	assert.Equal(t, 4*time.Millisecond, r.MaxFrame)
	assert.Equal(t, 2, r.Views)
	assert.Equal(t, 3, r.Items)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Views: 2")

	// the next interval starts from scratch
	assert.Nil(t, p.tick(FrameStats{Duration: time.Millisecond}, start.Add(1500*time.Millisecond)))
	assert.Equal(t, 1, p.frameCount)
}

func TestDefaultInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewProfiler(0).updateInterval)
}
