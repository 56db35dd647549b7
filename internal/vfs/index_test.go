package vfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const treeJSON = `{
  "tree": [
    {"path": "Piano", "type": "tree"},
    {"path": "Piano/piano.sfz", "type": "blob"},
    {"path": "Piano/GUI/bank.xml", "type": "blob"},
    {"path": "Piano/Samples/C4.wav", "type": "blob"}
  ],
  "truncated": false
}`

func TestIndexRepositoryFallsBackToMaster(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/repos/acme/pianos/git/trees/master" {
			_, _ = w.Write([]byte(treeJSON))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	repo := Repository{Owner: "acme", Name: "pianos", APIBase: srv.URL, RawBase: "https://raw.example.com"}
	store := NewStore("")

	ref, err := IndexRepository(context.Background(), store, srv.Client(), repo)
	if err != nil {
		t.Fatalf("IndexRepository failed: %v", err)
	}
	if ref != "master" {
		t.Errorf("Expected fallback ref master, got %q", ref)
	}
	if len(requested) != 2 {
		t.Errorf("Expected exactly one retry, got requests %v", requested)
	}
	if store.Root() != "https://raw.example.com/acme/pianos/master/" {
		t.Errorf("Unexpected store root %q", store.Root())
	}
	if store.Len() != 3 {
		t.Errorf("Expected 3 blobs registered, got %d", store.Len())
	}
	if e, ok := store.Get("Piano/GUI/bank.xml"); !ok || e.IsLocal() {
		t.Error("Expected bank.xml to be registered as remote")
	}
}

func TestIndexRepositoryGivesUpAfterOneRetry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	repo := Repository{Owner: "acme", Name: "gone", APIBase: srv.URL}
	_, err := IndexRepository(context.Background(), NewStore(""), srv.Client(), repo)
	if !IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if hits != 2 {
		t.Errorf("Expected 2 requests, got %d", hits)
	}
}

func TestIndexRepositoryKeepsPercentNames(t *testing.T) {
	const listing = `{"tree": [
	  {"path": "a.sfz", "type": "blob"},
	  {"path": "Samples/50% vel.wav", "type": "blob"},
	  {"path": "Samples/100%25.wav", "type": "blob"},
	  {"path": "/", "type": "blob"}
	]}`

	var rawPaths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/kit/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listing))
	})
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		rawPaths = append(rawPaths, r.URL.EscapedPath())
		_, _ = w.Write([]byte("pcm"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	repo := Repository{Owner: "acme", Name: "kit", APIBase: srv.URL, RawBase: srv.URL + "/raw"}
	store := NewStore("")
	if _, err := IndexRepository(context.Background(), store, srv.Client(), repo); err != nil {
		t.Fatalf("IndexRepository failed: %v", err)
	}

	want := []string{"Samples/100%25.wav", "Samples/50% vel.wav", "a.sfz"}
	if got := store.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected keys %v, got %v", want, got)
	}

	resolver := NewResolver(store, WithHTTPClient(srv.Client()))
	e, err := resolver.Resolve(context.Background(), "Samples/50% vel.wav", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if text, _ := e.Text(); text != "pcm" {
		t.Errorf("Unexpected contents %q", text)
	}
	if len(rawPaths) != 1 || rawPaths[0] != "/raw/acme/kit/main/Samples/50%25%20vel.wav" {
		t.Errorf("Unexpected raw request %v", rawPaths)
	}
}

func TestParseRepository(t *testing.T) {
	repo, err := ParseRepository("acme/pianos")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if repo.Owner != "acme" || repo.Name != "pianos" {
		t.Errorf("Unexpected repository %+v", repo)
	}
	if got := repo.RawRoot("main"); got != DefaultRawBase+"/acme/pianos/main/" {
		t.Errorf("Unexpected raw root %q", got)
	}

	for _, bad := range []string{"", "acme", "acme/pianos/extra", "/pianos"} {
		if _, err := ParseRepository(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
