package smb

import (
	"context"
	"path"
	"strings"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/metrics"
)

// DefaultVideoExtension is the extension ListVideoFiles keeps by default.
const DefaultVideoExtension = ".mp4"

// FileEntry is one listed entry with its path relative to the share root.
type FileEntry struct {
	Name       string
	IsDir      bool
	RemotePath string
}

// Walker enumerates remote directories using sessions borrowed from a pool.
type Walker struct {
	source    SessionSource
	extension string
	metrics   *metrics.Metrics
}

// NewWalker creates a Walker that keeps files ending in extension. The
// match is case-sensitive. An empty extension selects DefaultVideoExtension.
func NewWalker(source SessionSource, extension string, m *metrics.Metrics) *Walker {
	if extension == "" {
		extension = DefaultVideoExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &Walker{
		source:    source,
		extension: extension,
		metrics:   m,
	}
}

// isHidden reports names the walker never returns or descends into.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@")
}

// dirFrame is one directory on the walk stack and the position within it.
type dirFrame struct {
	dir     string
	entries []FileInfo
	next    int
}

// ListVideoFiles returns every video file below root, depth-first in listing
// order. One session is held for the whole walk.
//
// Hidden entries (leading '.' or '@') are skipped. A directory that cannot be
// listed is logged and contributes nothing. Only a failure to acquire a session
// is returned as an error.
func (w *Walker) ListVideoFiles(ctx context.Context, root string) ([]string, error) {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanWalk, telemetry.Path(root))
	defer span.End()

	s, err := w.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer w.source.Release(s)

	var files []string
	root = cleanRemote(root)

	entries, ok := w.list(ctx, s, root)
	if !ok {
		return files, nil
	}
	stack := []*dirFrame{{dir: root, entries: entries}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		e := top.entries[top.next]
		top.next++

		if isHidden(e.Name) {
			continue
		}

		p := joinRemote(top.dir, e.Name)
		if e.IsDir {
			children, ok := w.list(ctx, s, p)
			if ok {
				stack = append(stack, &dirFrame{dir: p, entries: children})
			}
			continue
		}

		if strings.HasSuffix(e.Name, w.extension) {
			files = append(files, p)
		}
	}

	span.SetAttributes(telemetry.Items(len(files)))
	w.metrics.FilesListed(len(files))
	logger.DebugCtx(ctx, "walk complete", logger.KeyRoot, root, logger.KeyCount, len(files))
	return files, nil
}

// list reads one directory, logging a *ListError on failure.
func (w *Walker) list(ctx context.Context, s *Session, dir string) ([]FileInfo, bool) {
	entries, err := s.ReadDir(ctx, dir)
	if err != nil {
		lerr := &ListError{Path: dir, Err: err}
		w.metrics.ListError()
		logger.WarnCtx(ctx, "skipping unreadable directory", logger.KeyPath, dir, logger.KeyError, lerr)
		return nil, false
	}
	return entries, true
}

// ListFiles returns the direct children of dir, omitting names in excludes.
// Unlike ListVideoFiles a listing failure is returned as *ListError.
func (w *Walker) ListFiles(ctx context.Context, dir string, excludes map[string]struct{}) ([]FileEntry, error) {
	s, err := w.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer w.source.Release(s)

	dir = cleanRemote(dir)
	entries, err := s.ReadDir(ctx, dir)
	if err != nil {
		return nil, &ListError{Path: dir, Err: err}
	}

	out := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if _, skip := excludes[e.Name]; skip {
			continue
		}
		out = append(out, FileEntry{Name: e.Name, IsDir: e.IsDir, RemotePath: joinRemote(dir, e.Name)})
	}
	return out, nil
}

// Exists reports whether path exists on the share.
func (w *Walker) Exists(ctx context.Context, p string) (bool, error) {
	s, err := w.source.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer w.source.Release(s)

	if _, err := s.Stat(ctx, cleanRemote(p)); err != nil {
		if isPathError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// cleanRemote normalizes a share-relative path: forward slashes, no leading
// slash, "" for the share root.
func cleanRemote(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func joinRemote(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
