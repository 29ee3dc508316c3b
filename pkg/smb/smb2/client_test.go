package smb2

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	gosmb2 "github.com/hirochachacha/go-smb2"
	"github.com/stretchr/testify/assert"

	"github.com/marmos91/kidwatch/pkg/smb"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		code uint32
		want error
	}{
		{"name not found", statusNameNotFound, fs.ErrNotExist},
		{"path not found", statusPathNotFound, fs.ErrNotExist},
		{"access denied", statusAccessDenied, fs.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(&gosmb2.ResponseError{Code: tt.code})
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, smb.IsRetryable(err))
		})
	}

	plain := errors.New("boom")
	assert.Same(t, plain, mapError(plain))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, isAuthFailure(&gosmb2.ResponseError{Code: statusLogonFailure}))
	assert.True(t, isAuthFailure(&gosmb2.ResponseError{Code: statusPasswordExpired}))
	assert.False(t, isAuthFailure(&gosmb2.ResponseError{Code: statusNameNotFound}))
	assert.False(t, isAuthFailure(errors.New("logon failure")))
}

func TestToFileInfo(t *testing.T) {
	fi := toFileInfo(fakeInfo{name: "a.mp4", size: 42})
	assert.Equal(t, smb.FileInfo{Name: "a.mp4", Size: 42}, fi)
}

type fakeInfo struct {
	name string
	size int64
	dir  bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return 0 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }
