// Package smb2 adapts github.com/hirochachacha/go-smb2 to the smb.Dialer and
// smb.Conn interfaces.
package smb2

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	gosmb2 "github.com/hirochachacha/go-smb2"

	"github.com/marmos91/kidwatch/pkg/smb"
)

// NT status codes the adapter maps to typed errors.
const (
	statusNoSuchFile        = 0xC000000F
	statusAccessDenied      = 0xC0000022
	statusNameNotFound      = 0xC0000034
	statusPathNotFound      = 0xC000003A
	statusNoSuchUser        = 0xC0000064
	statusWrongPassword     = 0xC000006A
	statusLogonFailure      = 0xC000006D
	statusAccountRestricted = 0xC000006E
	statusPasswordExpired   = 0xC0000071
	statusAccountDisabled   = 0xC0000072
	statusBadNetworkName    = 0xC00000CC
)

// Dialer opens NTLM-authenticated sessions and mounts the endpoint's share.
type Dialer struct {
	net net.Dialer
}

// NewDialer creates a Dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial connects, authenticates and mounts ep.Share.
func (d *Dialer) Dial(ctx context.Context, ep smb.Endpoint) (smb.Conn, error) {
	tcp, err := d.net.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, &smb.ConnectError{Host: ep.Host, Port: ep.Port, Err: err}
	}

	dialer := &gosmb2.Dialer{
		Initiator: &gosmb2.NTLMInitiator{
			User:     ep.Username,
			Password: ep.Password,
			Domain:   ep.Domain,
		},
	}

	session, err := dialer.DialContext(ctx, tcp)
	if err != nil {
		_ = tcp.Close()
		if isAuthFailure(err) {
			return nil, &smb.AuthError{Host: ep.Host, Username: ep.Username, Err: err}
		}
		return nil, &smb.ConnectError{Host: ep.Host, Port: ep.Port, Err: err}
	}

	share, err := session.WithContext(ctx).Mount(ep.Share)
	if err != nil {
		_ = session.Logoff()
		_ = tcp.Close()
		if code, ok := statusCode(err); ok && code == statusAccessDenied {
			return nil, &smb.AuthError{Host: ep.Host, Username: ep.Username, Err: err}
		}
		return nil, &smb.ConnectError{Host: ep.Host, Port: ep.Port, Err: fmt.Errorf("mount %s: %w", ep.Share, err)}
	}

	return &conn{tcp: tcp, session: session, share: share}, nil
}

// conn is one mounted share.
type conn struct {
	tcp     net.Conn
	session *gosmb2.Session
	share   *gosmb2.Share
}

func (c *conn) ReadDir(ctx context.Context, path string) ([]smb.FileInfo, error) {
	infos, err := c.share.WithContext(ctx).ReadDir(path)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]smb.FileInfo, 0, len(infos))
	for _, fi := range infos {
		out = append(out, toFileInfo(fi))
	}
	return out, nil
}

func (c *conn) Stat(ctx context.Context, path string) (smb.FileInfo, error) {
	fi, err := c.share.WithContext(ctx).Stat(path)
	if err != nil {
		return smb.FileInfo{}, mapError(err)
	}
	return toFileInfo(fi), nil
}

func (c *conn) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := c.share.WithContext(ctx).ReadFile(path)
	if err != nil {
		return nil, mapError(err)
	}
	return data, nil
}

func (c *conn) Close() error {
	return errors.Join(c.share.Umount(), c.session.Logoff(), c.tcp.Close())
}

func toFileInfo(fi os.FileInfo) smb.FileInfo {
	return smb.FileInfo{Name: fi.Name(), IsDir: fi.IsDir(), Size: fi.Size()}
}

func statusCode(err error) (uint32, bool) {
	var respErr *gosmb2.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Code, true
	}
	return 0, false
}

func isAuthFailure(err error) bool {
	code, ok := statusCode(err)
	if !ok {
		return false
	}
	switch code {
	case statusLogonFailure, statusWrongPassword, statusNoSuchUser,
		statusAccountRestricted, statusPasswordExpired, statusAccountDisabled:
		return true
	}
	return false
}

// mapError attaches fs sentinels to NT status codes so callers can use errors.Is.
func mapError(err error) error {
	code, ok := statusCode(err)
	if !ok {
		return err
	}
	switch code {
	case statusNoSuchFile, statusNameNotFound, statusPathNotFound, statusBadNetworkName:
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	case statusAccessDenied:
		return fmt.Errorf("%w: %w", fs.ErrPermission, err)
	}
	return err
}
