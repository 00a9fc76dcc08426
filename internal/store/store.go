package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Config configures the Store
type Config struct {
	Dir         string          // root directory; empty provisions a temporary one owned by the store
	Compression Compression     // default CompressionNone
	MaxDepth    int             // shard directory levels, default DefaultMaxDepth
	Logger      *zerolog.Logger // nil disables logging
}

// Store is a map from string keys to values of type V, one file per entry.
// Every public method holds the store's mutex for its whole duration.
type Store[V any] struct {
	mu sync.Mutex

	dir     string
	owned   bool // dir was provisioned by Open and is removed by Close
	closed  bool
	comp    Compression
	paths   *PathMapper
	streams *streamCodec
	codec   Codec[V]

	stats *StatsCollector
	log   zerolog.Logger
}

// Open validates cfg and prepares the root directory. The returned store is
// ready for use; no operation creates the root lazily.
func Open[V any](cfg Config, codec Codec[V]) (*Store[V], error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: nil codec", ErrInvalidConfig)
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("%w: negative max depth %d", ErrInvalidConfig, cfg.MaxDepth)
	}
	comp, err := ParseCompression(string(cfg.Compression))
	if err != nil {
		return nil, err
	}

	dir, owned, err := prepareDir(cfg.Dir)
	if err != nil {
		return nil, err
	}

	streams, err := newStreamCodec(comp)
	if err != nil {
		if owned {
			os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("create %s codec: %w", comp, err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Store[V]{
		dir:     dir,
		owned:   owned,
		comp:    comp,
		paths:   NewPathMapper(dir, cfg.MaxDepth, comp),
		streams: streams,
		codec:   codec,
		stats:   NewStatsCollector(),
		log:     logger.With().Str("dir", dir).Logger(),
	}
	s.log.Debug().
		Str("compression", comp.String()).
		Int("max_depth", s.paths.maxDepth).
		Bool("temporary", owned).
		Msg("opened store")
	return s, nil
}

// prepareDir creates dir, or a fresh temporary directory when dir is empty,
// and returns its absolute path with symlinks resolved.
func prepareDir(dir string) (string, bool, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "diskmap-")
		if err != nil {
			return "", false, fmt.Errorf("create temp dir: %w", err)
		}
		dir, owned = tmp, true
	} else {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return "", false, fmt.Errorf("%w: %s is not a directory", ErrInvalidConfig, dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", false, fmt.Errorf("create dir: %w", err)
		}
	}

	abs, err := filepath.Abs(dir)
	if err == nil {
		abs, err = filepath.EvalSymlinks(abs)
	}
	if err != nil {
		if owned {
			os.RemoveAll(dir)
		}
		return "", false, fmt.Errorf("resolve dir: %w", err)
	}
	return abs, owned, nil
}

// Dir returns the absolute root directory.
func (s *Store[V]) Dir() string {
	return s.dir
}

// Compression returns the store's compression setting.
func (s *Store[V]) Compression() Compression {
	return s.comp
}

// Path returns the file that holds key's entry, whether or not it exists.
func (s *Store[V]) Path(key string) string {
	return s.paths.Resolve(key)
}

// Put stores value under key, creating shard directories as needed. A nil
// value (nil pointer, slice, map or interface) deletes an existing entry
// instead and is a no-op otherwise.
func (s *Store[V]) Put(key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.fail("put", key, ErrClosed)
	}

	path := s.paths.Resolve(key)
	if isNil(value) {
		return s.deleteLocked("put", key, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return s.fail("put", key, err)
	}
	if err := s.writeFile(path, value); err != nil {
		// A failed encode leaves nothing behind; only a crash can
		// leave a truncated entry.
		os.Remove(path)
		return s.fail("put", key, err)
	}

	s.stats.IncrementWrites()
	s.log.Debug().Str("key", key).Str("path", path).Msg("put")
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store[V]) Get(key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	if s.closed {
		return zero, s.fail("get", key, ErrClosed)
	}

	v, err := s.readFile(s.paths.Resolve(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.stats.IncrementMisses()
			return zero, ErrNotFound
		}
		return zero, s.fail("get", key, err)
	}
	s.stats.IncrementReads()
	return v, nil
}

// Remove deletes key's entry and returns the value it held. A missing entry
// is a no-op returning the zero value and a nil error. The file is deleted
// even when its value cannot be decoded; the decode failure is then returned
// as a StorageError.
func (s *Store[V]) Remove(key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	if s.closed {
		return zero, s.fail("remove", key, ErrClosed)
	}

	path := s.paths.Resolve(key)
	v, readErr := s.readFile(path)
	if readErr != nil && errors.Is(readErr, fs.ErrNotExist) {
		s.stats.IncrementMisses()
		return zero, nil
	}
	if err := s.deleteLocked("remove", key, path); err != nil {
		return zero, err
	}
	if readErr != nil {
		return zero, s.fail("remove", key, readErr)
	}
	return v, nil
}

// ContainsKey reports whether key has an entry. It never fails; a stat
// error other than absence is logged and reported as false.
func (s *Store[V]) ContainsKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	_, err := os.Stat(s.paths.Resolve(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("key", key).Msg("stat entry")
	}
	return err == nil
}

// Size walks the whole tree and returns the number of entries. Unreadable
// directories are logged and skipped.
func (s *Store[V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	n, err := countFiles(s.dir)
	if err != nil {
		s.log.Warn().Err(err).Msg("size: incomplete walk")
	}
	return n
}

// KeySet returns the sanitized key of every entry. These are the keys as
// stored on disk, which differ from the keys given to Put whenever
// sanitization replaced characters.
func (s *Store[V]) KeySet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return map[string]struct{}{}
	}
	keys, err := collectKeys(s.dir, s.comp.Ext())
	if err != nil {
		s.log.Warn().Err(err).Msg("keyset: incomplete walk")
	}
	return keys
}

// Keys returns KeySet in sorted order.
func (s *Store[V]) Keys() []string {
	return slices.Sorted(maps.Keys(s.KeySet()))
}

// Erase deletes the whole root directory tree. Erasing an already erased
// store succeeds; a later Put recreates the root.
func (s *Store[V]) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.fail("erase", "", ErrClosed)
	}
	return s.eraseLocked()
}

// Clear is Erase without an error result. Failures are logged at warn level
// and counted in Stats().ClearFailures; callers that need to know whether
// the store is empty must use Erase.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.eraseLocked(); err != nil {
		s.stats.IncrementClearFailures()
		s.log.Warn().Err(err).Msg("clear failed")
	}
}

// Stats returns current store statistics
func (s *Store[V]) Stats() Stats {
	return s.stats.Stats()
}

// Close releases codec resources. A store that provisioned its own
// temporary directory removes it. Close is idempotent.
func (s *Store[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.streams.Close()
	if s.owned {
		if rmErr := eraseAll(s.dir); rmErr != nil {
			err = errors.Join(err, &StorageError{Op: "close", Err: rmErr})
		}
	}
	s.log.Debug().Msg("closed store")
	return err
}

func (s *Store[V]) eraseLocked() error {
	if err := eraseAll(s.dir); err != nil {
		return s.fail("erase", "", err)
	}
	s.stats.IncrementErases()
	s.log.Debug().Msg("erased")
	return nil
}

// deleteLocked removes the entry file at path along with any shard
// directories left empty. A missing file is not an error.
func (s *Store[V]) deleteLocked(op, key, path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return s.fail(op, key, err)
	}
	pruneEmptyDirs(s.dir, filepath.Dir(path))
	s.stats.IncrementRemoves()
	s.log.Debug().Str("key", key).Str("path", path).Msg("removed")
	return nil
}

func (s *Store[V]) writeFile(path string, value V) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		s.streams.release()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w, finish, err := s.streams.writer(f)
	if err != nil {
		return err
	}
	if err := s.codec.Encode(w, value); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return finish()
}

func (s *Store[V]) readFile(path string) (V, error) {
	var zero V
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer func() {
		s.streams.release()
		f.Close()
	}()

	r, err := s.streams.reader(f)
	if err != nil {
		return zero, fmt.Errorf("open %s stream: %w", s.comp, err)
	}
	v, err := s.codec.Decode(r)
	if err != nil {
		return zero, fmt.Errorf("decode: %w", err)
	}
	// Drain to the end so compressed streams verify their checksum.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return zero, fmt.Errorf("decode: %w", err)
	}
	return v, nil
}

func (s *Store[V]) fail(op, key string, err error) error {
	s.stats.IncrementErrors()
	return &StorageError{Op: op, Key: key, Err: err}
}

// isNil reports whether v is a nil pointer, slice, map, interface, func or
// channel. Such values are the "absent" value for Put.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
