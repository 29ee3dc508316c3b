package smb

import (
	"context"
	"fmt"
	"time"
)

// DefaultPort is the standard SMB port.
const DefaultPort = 445

// Endpoint identifies a share on a remote host and the credentials used for it.
type Endpoint struct {
	Host     string
	Port     int
	Share    string
	Username string
	Password string
	Domain   string

	// DialTimeout bounds connection establishment. Zero means no limit.
	DialTimeout time.Duration
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", e.Host, port)
}

// String returns the UNC-style name of the share, without credentials.
func (e Endpoint) String() string {
	return fmt.Sprintf("//%s/%s", e.Host, e.Share)
}

// FileInfo is one entry returned by a directory listing or stat.
type FileInfo struct {
	Name  string
	IsDir bool
	Size  int64
}

// Conn is one authenticated session against a mounted share.
// Paths are relative to the share root and use forward slashes.
//
// Implementations need not be safe for concurrent use: the pool loans each
// Session, and so its Conn, to one caller at a time.
type Conn interface {
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Close logs the session off. Errors are informational only.
	Close() error
}

// Dialer establishes new authenticated sessions.
//
// Dial returns *ConnectError when the host is unreachable and *AuthError when
// credentials are rejected.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, ep Endpoint) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	return f(ctx, ep)
}
