// Package resolver owns loaded modules and answers per-frame lookups
// against them, synchronizing concurrent loads and lookups.
package resolver

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"symresolve/cache"
	"symresolve/internal/logging"
	"symresolve/symfile"
)

// errDuplicateModule is returned internally when a load observes the
// module name already present; LoadModule translates it to false.
var errDuplicateModule = errors.New("module already loaded")

// Options configures a Resolver.
type Options struct {
	// Cache is consulted before parsing and written to after a
	// successful parse. Nil disables caching entirely.
	Cache cache.ModuleCache

	// Logger receives diagnostic messages (symbol-file parse start,
	// load failures, semantic rejects surfaced from the parser, cache
	// hits, cache read and write failures). Cache misses are not
	// logged. The zero value behaves like logging.Nop().
	Logger logging.Logger
}

// Resolver owns a name-keyed map of loaded modules.
type Resolver struct {
	mu      sync.RWMutex
	modules map[string]*symfile.Module

	cache     cache.ModuleCache
	logger    logging.Logger
	loadGroup singleflight.Group
}

// New returns an empty Resolver.
func New(opts Options) *Resolver {
	return &Resolver{
		modules: make(map[string]*symfile.Module),
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
}

// HasModule reports whether moduleName has already been loaded.
func (r *Resolver) HasModule(moduleName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[moduleName]
	return ok
}

// LoadModule loads symbolFilePath (via cache, falling back to
// parsing) and registers it under moduleName. It returns false if
// moduleName is already loaded or if both the cache and the parser
// fail. Concurrent calls for the same moduleName are deduplicated: all
// of them observe a single load attempt, and only the caller that
// performed it returns true.
func (r *Resolver) LoadModule(moduleName, symbolFilePath string) bool {
	if r.HasModule(moduleName) {
		return false
	}

	// The closure runs only in the caller that performs the load;
	// callers that join an in-flight load share its result but keep
	// loaded == false.
	loaded := false
	_, err, _ := r.loadGroup.Do(moduleName, func() (interface{}, error) {
		r.mu.RLock()
		_, already := r.modules[moduleName]
		r.mu.RUnlock()
		if already {
			return nil, errDuplicateModule
		}

		mod, err := r.loadModule(moduleName, symbolFilePath)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if _, already := r.modules[moduleName]; already {
			r.mu.Unlock()
			return nil, errDuplicateModule
		}
		r.modules[moduleName] = mod
		r.mu.Unlock()
		loaded = true
		return mod, nil
	})

	if err != nil {
		if errors.Cause(err) != errDuplicateModule {
			r.logger.Warn("msg", "failed to load module", "module", moduleName, "path", symbolFilePath, "err", err)
		}
		return false
	}
	return loaded
}

func (r *Resolver) loadModule(moduleName, symbolFilePath string) (*symfile.Module, error) {
	if r.cache != nil {
		if mod, err := r.loadFromCache(moduleName, symbolFilePath); err == nil {
			return mod, nil
		}
	}

	f, err := os.Open(symbolFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening symbol file")
	}
	defer f.Close()

	r.logger.Debug("msg", "parsing symbol file", "module", moduleName, "path", symbolFilePath)
	mod, err := symfile.LoadMap(f, moduleName, r.logger)
	if err != nil {
		return nil, errors.Wrap(err, "parsing symbol file")
	}

	if r.cache != nil {
		r.writeToCache(symbolFilePath, mod)
	}
	return mod, nil
}

func (r *Resolver) loadFromCache(moduleName, symbolFilePath string) (*symfile.Module, error) {
	stream, err := r.cache.GetModuleData(symbolFilePath)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	mod, err := symfile.Decode(stream, moduleName)
	if err != nil {
		if errors.Cause(err) == symfile.ErrVersionMismatch {
			r.logger.Debug("msg", "cache version mismatch, reparsing", "module", moduleName)
		} else {
			r.logger.Debug("msg", "cache read failed, reparsing", "module", moduleName, "err", err)
		}
		return nil, err
	}
	r.logger.Debug("msg", "cache hit", "module", moduleName)
	return mod, nil
}

func (r *Resolver) writeToCache(symbolFilePath string, mod *symfile.Module) {
	w, err := r.cache.BeginSetModuleData(symbolFilePath)
	if err != nil {
		r.logger.Warn("msg", "cache write failed", "err", err)
		return
	}
	if err := symfile.Encode(w, mod); err != nil {
		r.logger.Warn("msg", "cache encode failed", "err", err)
		return
	}
	if err := r.cache.EndSetModuleData(symbolFilePath, w); err != nil {
		r.logger.Warn("msg", "cache commit failed", "err", err)
	}
}
