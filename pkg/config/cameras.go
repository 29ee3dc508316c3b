package config

import (
	"fmt"
	"sort"

	"github.com/marmos91/kidwatch/pkg/dispatch"
	"github.com/marmos91/kidwatch/pkg/smb"
)

// Camera returns the named camera with zero fields filled from the
// "default" entry. Folder and Name fall back to the camera key.
func (c *Config) Camera(name string) (CameraConfig, error) {
	cam, ok := c.Cameras[name]
	if !ok {
		return CameraConfig{}, fmt.Errorf("unknown camera %q", name)
	}

	def := c.Cameras[DefaultCamera]
	if cam.Folder == "" {
		cam.Folder = name
	}
	if cam.Name == "" {
		cam.Name = name
	}
	if cam.SampleInterval == 0 {
		cam.SampleInterval = def.SampleInterval
	}
	if cam.ConfThreshold == 0 {
		cam.ConfThreshold = def.ConfThreshold
	}
	if cam.HeightRatio == 0 {
		cam.HeightRatio = def.HeightRatio
	}
	if cam.SampleSize == 0 {
		cam.SampleSize = def.SampleSize
	}
	return cam, nil
}

// CameraNames returns the configured camera names, sorted, without "default".
func (c *Config) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for name := range c.Cameras {
		if name == DefaultCamera {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveSMB returns the share settings selected by IsInternal.
func (c *Config) ActiveSMB() SMBConfig {
	if c.IsInternal {
		return c.SMBInternal
	}
	return c.SMB
}

// Endpoint converts the active share settings for the SMB client.
func (c *Config) Endpoint() smb.Endpoint {
	s := c.ActiveSMB()
	return smb.Endpoint{
		Host:        s.Host,
		Port:        s.Port,
		Share:       s.Share,
		Username:    s.Username,
		Password:    s.Password,
		Domain:      s.Domain,
		DialTimeout: s.DialTimeout,
	}
}

// PoolConfig converts the active share settings for the session pool.
func (c *Config) PoolConfig() smb.PoolConfig {
	s := c.ActiveSMB()
	return smb.PoolConfig{
		MaxSessions:     s.MaxSessions,
		FreshnessWindow: s.FreshnessWindow,
	}
}

// ReaderConfig converts the reader section for smb.NewReader.
func (c *Config) ReaderConfig() smb.ReaderConfig {
	return smb.ReaderConfig{
		Attempts:    c.Reader.RetryAttempts,
		PreDelayMin: c.Reader.PreDelayMin,
		PreDelayMax: c.Reader.PreDelayMax,
		BackoffMin:  c.Reader.BackoffMin,
		BackoffMax:  c.Reader.BackoffMax,
		MaxFileSize: c.Reader.MaxFileSize.Int64(),
	}
}

// DispatchConfig converts the dispatch section for a named run.
func (c *Config) DispatchConfig(name string) dispatch.Config {
	threshold := dispatch.DefaultFailureRateThreshold
	if c.Dispatch.FailureRateThreshold != nil {
		threshold = *c.Dispatch.FailureRateThreshold
	}
	return dispatch.Config{
		Name:                 name,
		MaxWorkers:           c.Dispatch.MaxWorkers,
		BatchSize:            c.Dispatch.BatchSize,
		FailureRateThreshold: threshold,
	}
}
