package vfs

import (
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"sfzplayer/internal/logging"
)

var (
	storeLogger = logging.GetLogger().WithPrefix("store")
)

// Store owns the flat key -> Entry map for one root plus the tree index
// built from the registered keys. It never performs I/O on its own, except
// for the explicit ScanLocal walk.
type Store struct {
	mu      sync.RWMutex
	root    string
	entries map[string]*Entry
	tree    *Tree
}

// NewStore creates an empty store for the given root (a local directory or
// an HTTP base URL).
func NewStore(root string) *Store {
	storeLogger.Debug("Creating new store for root: %s", root)
	return &Store{
		root:    root,
		entries: make(map[string]*Entry),
		tree:    NewTree(),
	}
}

// Root returns the configured root.
func (s *Store) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// IsRemote reports whether the store root is an HTTP location.
func (s *Store) IsRemote() bool {
	return IsRemote(s.Root())
}

// RegisterLocal registers raw as a file read through h.
// An already registered key is returned unchanged.
func (s *Store) RegisterLocal(raw string, h Handle) (*Entry, error) {
	return s.register(raw, Local{Handle: h})
}

// RegisterRemote registers raw as a file fetched over HTTP.
// An already registered key is returned unchanged.
func (s *Store) RegisterRemote(raw string) (*Entry, error) {
	return s.register(raw, Remote{})
}

func (s *Store) register(raw string, src Source) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A registered key names itself; it is never decoded a second time.
	if existing, ok := s.entries[raw]; ok {
		return existing, nil
	}

	key, err := Normalize(raw, s.root)
	if err != nil {
		return nil, err
	}
	return s.insert(key, raw, src)
}

// registerDecoded registers a name that is already decoded, such as a
// path from a directory walk or a repository listing.
func (s *Store) registerDecoded(name string, src Source) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(normalizeDecoded(name, s.root, name), name, src)
}

func (s *Store) insert(key, raw string, src Source) (*Entry, error) {
	if key == RootKey {
		return nil, NewError(OpRegister, raw, ErrRootPath)
	}

	if existing, ok := s.entries[key]; ok {
		storeLogger.Trace("Key already registered: %q", key)
		return existing, nil
	}

	e := newEntry(key, src)
	s.entries[key] = e
	if s.tree.Insert(key) {
		storeLogger.Warn("Key %q overlaps a file and a directory; it browses as a directory", key)
	}
	storeLogger.Trace("Registered %q (local=%v)", key, e.IsLocal())
	return e, nil
}

// Get returns the entry for a key.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Len returns the number of registered entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset drops every entry and the tree and switches to a new root.
func (s *Store) Reset(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	storeLogger.Debug("Resetting store: %q -> %q (%d entries dropped)", s.root, root, len(s.entries))
	s.root = root
	s.entries = make(map[string]*Entry)
	s.tree = NewTree()
}

// Keys returns all registered keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysWithExtension returns the sorted keys whose extension matches ext,
// compared case-insensitively.
func (s *Store) KeysWithExtension(ext string) []string {
	var out []string
	for _, k := range s.Keys() {
		if strings.EqualFold(ExtensionOf(k), ext) {
			out = append(out, k)
		}
	}
	return out
}

// Tree returns a snapshot of the tree index.
func (s *Store) Tree() *Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.clone()
}

// RebuildTree reconstructs the tree from the flat map alone.
func (s *Store) RebuildTree() *Tree {
	return BuildTree(s.Keys())
}

// ScanLocal walks dir on fsys and registers every regular file with a
// handle reading from fsys. Entries that cannot be read or registered are
// skipped with a warning. It returns the number of files registered.
func (s *Store) ScanLocal(fsys afero.Fs, dir string) (int, error) {
	storeLogger.Debug("Scanning local directory: %s", dir)

	count := 0
	err := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if p == dir {
				storeLogger.Error("Error walking path %q: %v", p, err)
				return err
			}
			storeLogger.Warn("Skipping %q: %v", p, err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if _, err := s.registerDecoded(p, Local{Handle: AferoHandle{Fs: fsys, Name: p}}); err != nil {
			storeLogger.Warn("Skipping %q: %v", p, err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		storeLogger.Error("Failed to walk local directory: %v", err)
		return count, err
	}

	storeLogger.Debug("Registered %d local files", count)
	return count, nil
}
