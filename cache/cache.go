// Package cache maps symbol-file paths to cache-entry paths and reads
// and writes the serialized form of a module atomically.
package cache

import (
	"io"

	"github.com/pkg/errors"
)

// ErrNoEntry is returned by GetModuleData when symbolFilePath maps to
// no cache entry, whether because nothing was ever written or because
// the path does not fit the three-trailing-component layout
// DiskModuleCache requires.
var ErrNoEntry = errors.New("no cache entry")

// ModuleCache is a pure I/O collaborator for the resolver's disk cache.
// Implementations need not be safe for concurrent use on the same
// symbolFilePath; the resolver serializes cache access per module.
type ModuleCache interface {
	// GetModuleData returns a readable stream of the cached bytes for
	// symbolFilePath, or ErrNoEntry if there is none. The caller must
	// Close the returned stream.
	GetModuleData(symbolFilePath string) (io.ReadCloser, error)

	// BeginSetModuleData returns a writable stream for symbolFilePath.
	// Its contents are invisible to GetModuleData callers until
	// EndSetModuleData commits them.
	BeginSetModuleData(symbolFilePath string) (io.WriteCloser, error)

	// EndSetModuleData commits the stream returned by a prior
	// BeginSetModuleData call for the same path. Calling it with a
	// stream not returned by BeginSetModuleData is undefined.
	EndSetModuleData(symbolFilePath string, stream io.WriteCloser) error
}
