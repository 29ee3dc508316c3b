package results

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	at := time.Date(2024, 8, 19, 14, 3, 9, 0, time.Local)

	var buf bytes.Buffer
	err := WriteReport(&buf, []Classification{
		{VideoPath: "Front/20240819AM/a.mp4", CameraType: "front", CameraName: "Front door, main", HasChild: true, ProcessedAt: at},
		{VideoPath: "Hall/b.mp4", CameraType: "default", CameraName: "Default", ProcessedAt: at},
	})
	require.NoError(t, err)

	assert.Equal(t, "video_path,camera_type,camera_name,has_child,processed_time\n"+
		"Front/20240819AM/a.mp4,front,\"Front door, main\",true,2024-08-19 14:03:09\n"+
		"Hall/b.mp4,default,Default,false,2024-08-19 14:03:09\n", buf.String())
}

func TestVideoList_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVideoList(&buf, []string{"Front/a.mp4", "Garden/b.mp4"}))

	paths, err := ReadVideoList(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Front/a.mp4", "Garden/b.mp4"}, paths)
}

func TestReadVideoList(t *testing.T) {
	t.Run("report columns", func(t *testing.T) {
		in := "camera_type,video_path,has_child\nfront,Front/a.mp4,true\ngarden, Garden/b.mp4 ,false\nx,,false\n"
		paths, err := ReadVideoList(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"Front/a.mp4", "Garden/b.mp4"}, paths)
	})

	t.Run("bom header", func(t *testing.T) {
		paths, err := ReadVideoList(strings.NewReader("\ufeffvideo_path\na.mp4\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.mp4"}, paths)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ReadVideoList(strings.NewReader("path\na.mp4\n"))
		assert.ErrorContains(t, err, "video_path")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadVideoList(strings.NewReader(""))
		assert.Error(t, err)
	})
}
