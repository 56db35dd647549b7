package instrument

import (
	"sort"
	"strings"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"
)

var (
	mapLogger = logging.GetLogger().WithPrefix("samplemap")
)

const (
	minNote = 0
	maxNote = 127
)

// SampleMap maps MIDI note numbers to sample resource paths.
// It is built once and never modified.
type SampleMap struct {
	notes map[int]string
}

// Lookup returns the sample path for a note.
func (m SampleMap) Lookup(note int) (string, bool) {
	p, ok := m.notes[note]
	return p, ok
}

// Len returns the number of mapped notes.
func (m SampleMap) Len() int {
	return len(m.notes)
}

// Notes returns the mapped notes in ascending order.
func (m SampleMap) Notes() []int {
	notes := make([]int, 0, len(m.notes))
	for n := range m.notes {
		notes = append(notes, n)
	}
	sort.Ints(notes)
	return notes
}

// Paths returns the distinct sample paths, sorted.
func (m SampleMap) Paths() []string {
	seen := make(map[string]struct{}, len(m.notes))
	paths := make([]string, 0, len(m.notes))
	for _, p := range m.notes {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// BuildSampleMap maps each region's lokey to its sample. origin is the
// path of the file the definition came from; when it is remote and the
// region inherits a default_path, the sample becomes root + default_path
// + sample. Later regions win on duplicate keys.
func BuildSampleMap(def Definition, origin, root string) SampleMap {
	m := SampleMap{notes: make(map[int]string)}
	remote := vfs.IsRemote(origin)

	for _, region := range regionsOf(def) {
		note, ok := regionKey(region)
		if !ok {
			mapLogger.Debug("Region %d has no usable lokey, skipping", region.Index)
			continue
		}
		if note < minNote || note > maxNote {
			mapLogger.Warn("Region %d key %d outside MIDI range, skipping", region.Index, note)
			continue
		}
		sample, ok := region.Lookup("sample")
		if !ok || sample == "" {
			mapLogger.Debug("Region %d has no sample, skipping", region.Index)
			continue
		}

		sample = stripEscapes(sample)
		if remote {
			if defaultPath, ok := region.Lookup("default_path"); ok {
				sample = root + defaultPath + sample
			}
		}
		m.notes[note] = sample
	}

	mapLogger.Debug("Built sample map with %d notes", len(m.notes))
	return m
}

// regionsOf prefers the regions below the first master section.
func regionsOf(def Definition) []*Element {
	if master, ok := def.First("master"); ok {
		return master.Descendants("region")
	}
	return def["region"]
}

// regionKey prefers the region's own lokey/key over inherited ones.
func regionKey(region *Element) (int, bool) {
	for _, name := range []string{"lokey", "key"} {
		if v, ok := region.Get(name); ok {
			return NoteNumber(v)
		}
	}
	for _, name := range []string{"lokey", "key"} {
		if v, ok := region.Lookup(name); ok {
			return NoteNumber(v)
		}
	}
	return 0, false
}

// stripEscapes turns backslashes into slashes and drops leading "../".
func stripEscapes(sample string) string {
	sample = strings.ReplaceAll(sample, `\`, "/")
	for strings.HasPrefix(sample, "../") {
		sample = strings.TrimPrefix(sample, "../")
	}
	return sample
}
