package vfs

import (
	"sync"

	"sfzplayer/internal/audio"
)

// Source says where an entry's contents come from.
// It is one of Local or Remote.
type Source interface {
	isSource()
}

// Local is an entry backed by a host-supplied file handle.
type Local struct {
	Handle Handle
}

// Remote is an entry fetched over HTTP relative to the store root.
type Remote struct{}

func (Local) isSource()  {}
func (Remote) isSource() {}

// Contents is the loaded payload of an entry.
// It is one of Text, Bytes or Audio.
type Contents interface {
	isContents()
}

// Text is textual file contents.
type Text string

// Bytes is undecoded binary file contents.
type Bytes []byte

// Audio is decoded sample data.
type Audio struct {
	Buffer *audio.Buffer
}

func (Text) isContents()  {}
func (Bytes) isContents() {}
func (Audio) isContents() {}

// Entry is the single record for one normalized key in a Store.
// Contents start unset and are written at most once.
type Entry struct {
	Path      string
	Extension string
	Source    Source

	mu       sync.RWMutex
	contents Contents
}

func newEntry(key string, src Source) *Entry {
	return &Entry{
		Path:      key,
		Extension: ExtensionOf(key),
		Source:    src,
	}
}

// Contents returns the loaded contents, or nil when not yet loaded.
func (e *Entry) Contents() Contents {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.contents
}

// Loaded reports whether contents have been written.
func (e *Entry) Loaded() bool {
	return e.Contents() != nil
}

// Text returns the contents as text when they were loaded as text.
func (e *Entry) Text() (string, bool) {
	t, ok := e.Contents().(Text)
	return string(t), ok
}

// Audio returns the decoded buffer when the contents are audio.
func (e *Entry) Audio() (*audio.Buffer, bool) {
	a, ok := e.Contents().(Audio)
	return a.Buffer, ok
}

// IsLocal reports whether the entry is backed by a local handle.
func (e *Entry) IsLocal() bool {
	_, ok := e.Source.(Local)
	return ok
}

// setContents stores c unless contents were already written.
// It returns the contents the entry holds afterwards.
func (e *Entry) setContents(c Contents) Contents {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.contents == nil {
		e.contents = c
	}
	return e.contents
}
