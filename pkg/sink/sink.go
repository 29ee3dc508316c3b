// Package sink defines where downloaded videos and extracted frames are stored.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrClosed is returned by operations on a closed sink.
	ErrClosed = errors.New("sink is closed")

	// ErrInvalidKey is returned for empty keys or keys escaping the sink root.
	ErrInvalidKey = errors.New("invalid sink key")
)

// Sink stores artifacts under slash-separated keys.
type Sink interface {
	// Put stores data under key, replacing any previous object. Readers never
	// observe a partially written object.
	Put(ctx context.Context, key string, data []byte) error

	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix removes every object under prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Describe names the backing location for logs, e.g. "s3://bucket/prefix".
	Describe() string

	Close() error
}

// CleanKey normalizes key to a relative slash path and rejects keys that
// are empty or climb above the root.
func CleanKey(key string) (string, error) {
	k := strings.ReplaceAll(key, `\`, "/")
	k = path.Clean("/" + k)
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(strings.ReplaceAll(key, `\`, "/"), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return k, nil
}
