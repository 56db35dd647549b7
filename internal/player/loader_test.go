package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"sfzplayer/internal/audio"
	"sfzplayer/internal/instrument"
	"sfzplayer/internal/vfs"
)

// lengthDecoder reports one frame per input byte and rejects "broken".
var lengthDecoder = audio.DecoderFunc(func(_ context.Context, data []byte) (*audio.Buffer, error) {
	if string(data) == "broken" {
		return nil, errors.New("bad wav")
	}
	return &audio.Buffer{SampleRate: 1000, Channels: 1, Data: make([]float32, len(data))}, nil
})

func setupLocalLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(fsys, "/lib/"+name, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	store := vfs.NewStore("/lib")
	if _, err := store.ScanLocal(fsys, "/lib"); err != nil {
		t.Fatalf("ScanLocal failed: %v", err)
	}
	return NewLoader(vfs.NewResolver(store, vfs.WithLocalFs(fsys), vfs.WithDecoder(lengthDecoder)))
}

func TestLoaderLocal(t *testing.T) {
	loader := setupLocalLoader(t, map[string]string{
		"Piano/Programs/piano.sfz": "<region> lokey=60 sample=../Samples/C4.wav\n<region> lokey=62 sample=../Samples/D4.wav\n<region> lokey=64 sample=../Samples/bad.wav",
		"Piano/Samples/C4.wav":     "abcd",
		"Piano/Samples/D4.wav":     "ab",
		"Piano/Samples/bad.wav":    "broken",
		"Piano/Programs/GUI/a.xml": `<AriaGUI><Knob x="1" y="2" w="3" h="4" frames="64" image="k.png"/></AriaGUI>`,
		"Piano/Programs/GUI/b.xml": `<AriaGUI/>`,
		"Organ/organ.sfz":          "<region> lokey=36 sample=pipe.wav",
	})
	ctx := context.Background()

	t.Run("Instruments", func(t *testing.T) {
		want := []string{"Organ/organ.sfz", "Piano/Programs/piano.sfz"}
		if got := loader.Instruments(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	inst, err := loader.Load(ctx, "Piano/Programs/piano.sfz")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Run("SampleMap", func(t *testing.T) {
		if inst.Samples.Len() != 3 {
			t.Errorf("Expected 3 notes, got %d", inst.Samples.Len())
		}
		if p, _ := inst.Samples.Lookup(60); p != "Samples/C4.wav" {
			t.Errorf("Unexpected sample %q", p)
		}
		if key := loader.SampleKey(inst, "Samples/C4.wav"); key != "Piano/Samples/C4.wav" {
			t.Errorf("Expected sample to resolve next to the program dir, got %q", key)
		}
	})

	t.Run("GUI", func(t *testing.T) {
		if inst.GUIKey != "Piano/Programs/GUI/a.xml" {
			t.Errorf("Expected first GUI descriptor, got %q", inst.GUIKey)
		}
		if len(inst.Controls) != 1 {
			t.Fatalf("Expected 1 control, got %d", len(inst.Controls))
		}
		knob := inst.Controls[0].(*instrument.Knob)
		if knob.Image != "/lib/Piano/Programs/GUI/k.png" {
			t.Errorf("Unexpected knob image %q", knob.Image)
		}
	})

	t.Run("Sample", func(t *testing.T) {
		buf, err := loader.Sample(ctx, inst, 60)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if buf.Frames() != 4 {
			t.Errorf("Expected 4 frames, got %d", buf.Frames())
		}
		if _, err := loader.Sample(ctx, inst, 61); !errors.Is(err, ErrUnmapped) {
			t.Errorf("Expected ErrUnmapped, got %v", err)
		}
		if _, err := loader.Sample(ctx, inst, 64); !errors.Is(err, vfs.ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("PreloadSurfacesFailure", func(t *testing.T) {
		err := loader.Preload(ctx, inst, 2)
		if !errors.Is(err, vfs.ErrDecode) {
			t.Errorf("Expected preload to fail on the broken sample, got %v", err)
		}
	})

	t.Run("NoGUI", func(t *testing.T) {
		organ, err := loader.Load(ctx, "Organ/organ.sfz")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if organ.GUIKey != "" || organ.Controls != nil {
			t.Error("Expected no GUI for the organ")
		}
	})

	t.Run("NotAFile", func(t *testing.T) {
		if _, err := loader.Load(ctx, "Piano"); !errors.Is(err, ErrNotInstrument) {
			t.Errorf("Expected ErrNotInstrument, got %v", err)
		}
	})
}

func TestLoaderRemotePreload(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)
	files := map[string]string{
		"/kit/drums.sfz":         "<control> default_path=Samples/\n<region> lokey=36 sample=../kick.wav\n<region> lokey=38 sample=snare.wav",
		"/kit/Samples/kick.wav":  "kick",
		"/kit/Samples/snare.wav": "snare",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	root := srv.URL + "/kit/"
	store := vfs.NewStore(root)
	loader := NewLoader(vfs.NewResolver(store, vfs.WithHTTPClient(srv.Client()), vfs.WithDecoder(lengthDecoder)))
	ctx := context.Background()

	inst, err := loader.Load(ctx, "drums.sfz")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p, _ := inst.Samples.Lookup(36); p != root+"Samples/kick.wav" {
		t.Errorf("Expected remote default_path rewrite, got %q", p)
	}

	if err := loader.Preload(ctx, inst, 4); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if _, err := loader.Sample(ctx, inst, 38); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range []string{"/kit/Samples/kick.wav", "/kit/Samples/snare.wav"} {
		if hits[p] != 1 {
			t.Errorf("Expected %s fetched once, got %d", p, hits[p])
		}
	}
}
