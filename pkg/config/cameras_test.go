package config

import (
	"testing"
	"time"

	"github.com/marmos91/kidwatch/internal/bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamera_FallsBackToDefault(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cameras[DefaultCamera] = CameraConfig{
		SampleInterval: 3 * time.Second,
		ConfThreshold:  0.7,
		HeightRatio:    0.4,
		SampleSize:     8,
	}
	cfg.Cameras["yard"] = CameraConfig{Folder: "Yard-Cam", ConfThreshold: 0.9}

	cam, err := cfg.Camera("yard")
	require.NoError(t, err)
	assert.Equal(t, "Yard-Cam", cam.Folder)
	assert.Equal(t, "yard", cam.Name)
	assert.Equal(t, 3*time.Second, cam.SampleInterval)
	assert.Equal(t, 0.9, cam.ConfThreshold)
	assert.Equal(t, 0.4, cam.HeightRatio)
	assert.Equal(t, 8, cam.SampleSize)

	_, err = cfg.Camera("attic")
	assert.Error(t, err)
}

func TestCameraNames_ExcludesDefault(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cameras["b"] = CameraConfig{}
	cfg.Cameras["a"] = CameraConfig{}

	assert.Equal(t, []string{"a", "b"}, cfg.CameraNames())
}

func TestEndpoint_SelectsInternalShare(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.SMB = SMBConfig{Host: "public.example", Share: "rec", Port: 445, MaxSessions: 5}
	cfg.SMBInternal = SMBConfig{Host: "10.0.0.2", Share: "rec", Port: 1445, MaxSessions: 2}

	assert.Equal(t, "public.example:445", cfg.Endpoint().Addr())
	assert.Equal(t, 5, cfg.PoolConfig().MaxSessions)

	cfg.IsInternal = true
	assert.Equal(t, "10.0.0.2:1445", cfg.Endpoint().Addr())
	assert.Equal(t, 2, cfg.PoolConfig().MaxSessions)
}

func TestReaderAndDispatchConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Reader.MaxFileSize = 10 * bytesize.MiB

	rc := cfg.ReaderConfig()
	assert.Equal(t, 3, rc.Attempts)
	assert.Equal(t, int64(10*bytesize.MiB), rc.MaxFileSize)

	dc := cfg.DispatchConfig("download")
	assert.Equal(t, "download", dc.Name)
	assert.Equal(t, 10, dc.BatchSize)
	assert.Equal(t, 0.30, dc.FailureRateThreshold)

	cfg.Dispatch.FailureRateThreshold = nil
	assert.Equal(t, 0.30, cfg.DispatchConfig("check").FailureRateThreshold)
}
