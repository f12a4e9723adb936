package cache

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DiskModuleCache stores cached module data under a directory tree
// mirroring the last three path components of each symbol file path.
type DiskModuleCache struct {
	root string
}

// NewDiskModuleCache returns a DiskModuleCache rooted at dir. dir need
// not exist yet; it is created on first write.
func NewDiskModuleCache(dir string) *DiskModuleCache {
	return &DiskModuleCache{root: dir}
}

// mapToCacheEntry implements the path-mapping rule: the input is
// assumed to end in .../<debug_file>/<identifier>/<debug_file>.sym;
// those three trailing components are preserved under the cache root
// with the trailing .sym rewritten to .symcache. A path with fewer
// than three components maps to no entry.
func mapToCacheEntry(root, symbolFilePath string) (string, bool) {
	clean := filepath.Clean(symbolFilePath)
	parts := strings.Split(clean, string(filepath.Separator))
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) < 3 {
		return "", false
	}
	tail := nonEmpty[len(nonEmpty)-3:]
	last := tail[len(tail)-1]
	tail[len(tail)-1] = strings.TrimSuffix(last, ".sym") + ".symcache"
	return filepath.Join(append([]string{root}, tail...)...), true
}

// GetModuleData implements ModuleCache.
func (c *DiskModuleCache) GetModuleData(symbolFilePath string) (io.ReadCloser, error) {
	path, ok := mapToCacheEntry(c.root, symbolFilePath)
	if !ok {
		return nil, ErrNoEntry
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoEntry
		}
		return nil, errors.Wrap(err, "opening cache entry")
	}
	return f, nil
}

// BeginSetModuleData implements ModuleCache. For a path with fewer
// than three trailing components, it returns a discarding writer so
// writes are a silent no-op rather than an error.
func (c *DiskModuleCache) BeginSetModuleData(symbolFilePath string) (io.WriteCloser, error) {
	path, ok := mapToCacheEntry(c.root, symbolFilePath)
	if !ok {
		return discardWriteCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating cache directory")
	}
	tmp := path + "." + uuid.New().String() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "creating temporary cache file")
	}
	return &diskWriter{final: path, tmp: tmp, f: f}, nil
}

// EndSetModuleData implements ModuleCache.
func (c *DiskModuleCache) EndSetModuleData(symbolFilePath string, stream io.WriteCloser) error {
	switch w := stream.(type) {
	case discardWriteCloser:
		return nil
	case *diskWriter:
		if err := w.f.Close(); err != nil {
			os.Remove(w.tmp)
			return errors.Wrap(err, "closing temporary cache file")
		}
		if err := os.Rename(w.tmp, w.final); err != nil {
			os.Remove(w.tmp)
			return errors.Wrap(err, "committing cache file")
		}
		return nil
	default:
		return errors.New("stream not produced by BeginSetModuleData")
	}
}

type diskWriter struct {
	final string
	tmp   string
	f     *os.File
}

func (w *diskWriter) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *diskWriter) Close() error                { return w.f.Close() }

type discardWriteCloser struct{}

func (discardWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriteCloser) Close() error                { return nil }
