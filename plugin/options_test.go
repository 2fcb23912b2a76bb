package plugin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Options(t *testing.T) {
	assert := assert.New(t)

	opts := Options{
		"path":    "/tmp/stream.bin",
		"packets": "250",
		"wait":    "1500ms",
		"local":   "",
		"bad":     "not-a-number",
	}

	assert.True(opts.Has("path"))
	assert.False(opts.Has("missing"))

	assert.Equal("/tmp/stream.bin", opts.String("path", ""))
	assert.Equal("fallback", opts.String("missing", "fallback"))

	packets, err := opts.Uint64("packets", 0)
	assert.NoError(err)
	assert.Equal(uint64(250), packets)

	// Absent keys fall back without error
	capacity, err := opts.Int("missing", 42)
	assert.NoError(err)
	assert.Equal(42, capacity)

	wait, err := opts.Duration("wait", 0)
	assert.NoError(err)
	assert.Equal(1500*time.Millisecond, wait)

	// A bare key counts as a boolean true
	local, err := opts.Bool("local", false)
	assert.NoError(err)
	assert.True(local)

	// A present but malformed value is an error
	_, err = opts.Int("bad", 0)
	assert.Error(err)
	_, err = opts.Bool("bad", false)
	assert.Error(err)
}
