package vfs

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"sfzplayer/internal/audio"
	"sfzplayer/internal/logging"
)

var (
	resolverLogger = logging.GetLogger().WithPrefix("resolver")
)

// Resolver loads entry contents on demand from the entry's backend.
// Concurrent first loads of the same key share one fetch.
type Resolver struct {
	store   *Store
	client  *http.Client
	decoder audio.Decoder
	localFs afero.Fs
	group   singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for remote entries.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.client = c
	}
}

// WithDecoder sets the audio decode capability used for binary resolves.
func WithDecoder(d audio.Decoder) Option {
	return func(r *Resolver) {
		r.decoder = d
	}
}

// WithLocalFs sets the filesystem used for local paths that were not
// registered before being resolved.
func WithLocalFs(fsys afero.Fs) Option {
	return func(r *Resolver) {
		r.localFs = fsys
	}
}

// NewResolver creates a resolver over store. Without options it uses
// http.DefaultClient, the WAV decoder and the OS filesystem.
func NewResolver(store *Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		client:  http.DefaultClient,
		decoder: audio.WAVDecoder{},
		localFs: afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store the resolver writes to.
func (r *Resolver) Store() *Store {
	return r.store
}

// Resolve returns the loaded entry for raw, which may be a key, a path
// under the root or a URL. A path without an extension does not name a
// file: Resolve returns a nil entry and a nil error for it.
func (r *Resolver) Resolve(ctx context.Context, raw string, wantBinary bool) (*Entry, error) {
	if ExtensionOf(raw) == "" {
		resolverLogger.Trace("No extension, not a file: %q", raw)
		return nil, nil
	}

	e, err := r.lookupOrRegister(raw)
	if err != nil {
		if errors.Is(err, ErrRootPath) {
			return nil, nil
		}
		return nil, err
	}
	return r.ResolveEntry(ctx, e, wantBinary)
}

func (r *Resolver) lookupOrRegister(raw string) (*Entry, error) {
	if e, ok := r.store.Get(raw); ok {
		return e, nil
	}
	key, err := Normalize(raw, r.store.Root())
	if err != nil {
		return nil, err
	}
	if e, ok := r.store.Get(key); ok {
		return e, nil
	}

	if IsRemote(raw) || r.store.IsRemote() {
		return r.store.RegisterRemote(raw)
	}
	name := Join(r.store.Root(), key)
	return r.store.RegisterLocal(raw, AferoHandle{Fs: r.localFs, Name: name})
}

// ResolveEntry loads e if its contents are unset and returns it.
// Loaded entries are returned without any fetch.
func (r *Resolver) ResolveEntry(ctx context.Context, e *Entry, wantBinary bool) (*Entry, error) {
	if e.Loaded() {
		resolverLogger.Trace("Already loaded: %q", e.Path)
		return e, nil
	}

	flightKey := e.Path + "\x00text"
	if wantBinary {
		flightKey = e.Path + "\x00audio"
	}

	// The shared load runs detached from any one caller: a caller that
	// gives up stops waiting, the load itself runs to completion.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey, func() (interface{}, error) {
		if e.Loaded() {
			return nil, nil
		}
		c, err := r.load(loadCtx, e, wantBinary)
		if err != nil {
			return nil, err
		}
		e.setContents(c)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		resolverLogger.Debug("Stopped waiting for %q: %v", e.Path, ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			resolverLogger.Warn("Failed to resolve %q: %v", e.Path, res.Err)
			return nil, res.Err
		}
		if res.Shared {
			resolverLogger.Trace("Shared in-flight load for %q", e.Path)
		}
		return e, nil
	}
}

func (r *Resolver) load(ctx context.Context, e *Entry, wantBinary bool) (Contents, error) {
	if !wantBinary {
		text, err := r.fetchText(ctx, e)
		if err != nil {
			return nil, err
		}
		resolverLogger.Debug("Loaded text %q (%d bytes)", e.Path, len(text))
		return Text(text), nil
	}

	data, err := r.ReadRaw(ctx, e)
	if err != nil {
		return nil, err
	}
	buf, err := r.decoder.Decode(ctx, data)
	if err != nil {
		return nil, NewError(OpDecode, e.Path, errors.Join(ErrDecode, err))
	}
	resolverLogger.Debug("Decoded %q (%d frames at %d Hz)", e.Path, buf.Frames(), buf.SampleRate)
	return Audio{Buffer: buf}, nil
}

func (r *Resolver) fetchText(ctx context.Context, e *Entry) (string, error) {
	switch src := e.Source.(type) {
	case Local:
		return src.Handle.ReadText(ctx)
	case Remote:
		data, err := httpGet(ctx, r.client, r.URL(e))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", NewError(OpFetch, e.Path, ErrInvalidPath)
	}
}

// ReadRaw reads the entry's bytes from its backend without touching the
// entry's contents.
func (r *Resolver) ReadRaw(ctx context.Context, e *Entry) ([]byte, error) {
	switch src := e.Source.(type) {
	case Local:
		return src.Handle.ReadBytes(ctx)
	case Remote:
		return httpGet(ctx, r.client, r.URL(e))
	default:
		return nil, NewError(OpFetch, e.Path, ErrInvalidPath)
	}
}

// URL returns the HTTP location of a remote entry.
func (r *Resolver) URL(e *Entry) string {
	if IsRemote(e.Path) {
		return e.Path
	}
	segments := strings.Split(e.Path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return Join(r.store.Root(), strings.Join(segments, "/"))
}
