// Package player loads instruments from the virtual file store and turns
// keyboard notes into decoded samples.
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"sfzplayer/internal/audio"
	"sfzplayer/internal/instrument"
	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"
)

var (
	loaderLogger = logging.GetLogger().WithPrefix("loader")

	// ErrUnmapped is returned for a note with no sample.
	ErrUnmapped = errors.New("note has no sample")

	// ErrNotInstrument is returned when a key does not name a loadable definition.
	ErrNotInstrument = errors.New("not an instrument definition")
)

// Instrument is a loaded region definition plus its optional GUI.
type Instrument struct {
	Key        string
	Definition instrument.Definition
	Samples    instrument.SampleMap

	GUIKey   string
	GUI      instrument.Definition
	Controls []instrument.Control
}

// Loader builds instruments from entries resolved through a vfs.Resolver.
type Loader struct {
	resolver *vfs.Resolver
}

// NewLoader creates a loader on top of resolver.
func NewLoader(resolver *vfs.Resolver) *Loader {
	return &Loader{resolver: resolver}
}

// Instruments lists the region files registered in the store.
func (l *Loader) Instruments() []string {
	return l.resolver.Store().KeysWithExtension("sfz")
}

// Load resolves and parses the region file at key, builds its sample map
// and, when a GUI/*.xml descriptor sits next to it, its controls.
func (l *Loader) Load(ctx context.Context, key string) (*Instrument, error) {
	loaderLogger.Info("Loading instrument %q", key)

	text, entry, err := l.resolveText(ctx, key)
	if err != nil {
		return nil, err
	}
	def, err := instrument.ParseSFZ(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", entry.Path, err)
	}

	store := l.resolver.Store()
	origin := entry.Path
	if !entry.IsLocal() {
		origin = l.resolver.URL(entry)
	}

	inst := &Instrument{
		Key:        entry.Path,
		Definition: def,
		Samples:    instrument.BuildSampleMap(def, origin, store.Root()),
	}
	loaderLogger.Debug("Instrument %q maps %d notes", inst.Key, inst.Samples.Len())

	if guiKey, ok := l.findGUI(entry.Path); ok {
		guiText, _, err := l.resolveText(ctx, guiKey)
		if err != nil {
			return nil, err
		}
		gui, err := instrument.ParseGUI(guiText)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", guiKey, err)
		}
		inst.GUIKey = guiKey
		inst.GUI = gui
		inst.Controls = instrument.BuildControls(gui, instrumentRoot(store.Root(), entry.Path))
		loaderLogger.Debug("GUI %q has %d controls", guiKey, len(inst.Controls))
	}

	return inst, nil
}

func (l *Loader) resolveText(ctx context.Context, key string) (string, *vfs.Entry, error) {
	entry, err := l.resolver.Resolve(ctx, key, false)
	if err != nil {
		return "", nil, err
	}
	if entry == nil {
		return "", nil, fmt.Errorf("%s: %w", key, ErrNotInstrument)
	}
	text, ok := entry.Text()
	if !ok {
		return "", nil, fmt.Errorf("%s is loaded as binary: %w", key, ErrNotInstrument)
	}
	return text, entry, nil
}

// findGUI returns the first XML descriptor under <dir>/GUI/.
func (l *Loader) findGUI(key string) (string, bool) {
	prefix := "GUI/"
	if dir := vfs.DirectoryOf(key); dir != vfs.RootKey {
		prefix = dir + "/GUI/"
	}
	for _, k := range l.resolver.Store().KeysWithExtension("xml") {
		if strings.HasPrefix(k, prefix) && !strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			return k, true
		}
	}
	return "", false
}

// instrumentRoot is the resource root of the instrument's own directory,
// with a trailing slash.
func instrumentRoot(root, key string) string {
	dir := vfs.DirectoryOf(key)
	if dir == vfs.RootKey {
		if root == "" || strings.HasSuffix(root, "/") {
			return root
		}
		return root + "/"
	}
	return vfs.Join(root, dir) + "/"
}

// SampleKey picks the store key for a mapped sample path. Paths that are
// not registered as given are tried relative to the instrument's
// directory and its parent.
func (l *Loader) SampleKey(inst *Instrument, sample string) string {
	if vfs.IsRemote(sample) {
		return sample
	}
	store := l.resolver.Store()
	dir := vfs.DirectoryOf(inst.Key)
	candidates := []string{sample}
	if dir != vfs.RootKey {
		candidates = append(candidates, dir+"/"+sample)
		if parent := vfs.DirectoryOf(dir); parent != vfs.RootKey {
			candidates = append(candidates, parent+"/"+sample)
		}
	}
	for _, c := range candidates {
		if _, ok := store.Get(c); ok {
			return c
		}
	}
	return sample
}

// Sample returns the decoded buffer mapped to note.
func (l *Loader) Sample(ctx context.Context, inst *Instrument, note int) (*audio.Buffer, error) {
	sample, ok := inst.Samples.Lookup(note)
	if !ok {
		return nil, fmt.Errorf("note %d: %w", note, ErrUnmapped)
	}

	key := l.SampleKey(inst, sample)
	entry, err := l.resolver.Resolve(ctx, key, true)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("note %d: %s: %w", note, sample, vfs.ErrInvalidPath)
	}
	buf, ok := entry.Audio()
	if !ok {
		return nil, vfs.NewError(vfs.OpDecode, entry.Path, fmt.Errorf("%w: loaded as text", vfs.ErrDecode))
	}
	return buf, nil
}

// Preload resolves and decodes every mapped sample with at most workers
// loads in flight. The first failure cancels the rest and is returned.
func (l *Loader) Preload(ctx context.Context, inst *Instrument, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	paths := inst.Samples.Paths()
	loaderLogger.Info("Preloading %d samples with %d workers", len(paths), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		key := l.SampleKey(inst, p)
		g.Go(func() error {
			_, err := l.resolver.Resolve(gctx, key, true)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		loaderLogger.Error("Preload failed: %v", err)
		return err
	}
	return nil
}
