package gstreamer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPipelineDescription(t *testing.T) {
	desc := PipelineDescription("/tmp/kidwatch-1.video", 5*time.Second)

	assert.Contains(t, desc, `filesrc location="/tmp/kidwatch-1.video"`)
	assert.Contains(t, desc, "framerate=1000/5000")
	assert.Contains(t, desc, "format=RGB")
	assert.Contains(t, desc, "appsink name=sink")
}

func TestPipelineDescription_DefaultsToOneFramePerSecond(t *testing.T) {
	assert.Contains(t, PipelineDescription("v", 0), "framerate=1000/1000")
}

func TestSpool(t *testing.T) {
	d := New(t.TempDir())

	name, cleanup, err := d.spool([]byte("video"))
	assert.NoError(t, err)
	assert.FileExists(t, name)

	cleanup()
	assert.NoFileExists(t, name)
}
