package vfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultAPIBase is the hosted git API used to list repositories.
	DefaultAPIBase = "https://api.github.com"
	// DefaultRawBase serves raw file contents for a repository ref.
	DefaultRawBase = "https://raw.githubusercontent.com"

	defaultRef  = "main"
	fallbackRef = "master"
)

// Repository identifies a hosted git repository.
type Repository struct {
	Owner string
	Name  string

	APIBase string // defaults to DefaultAPIBase
	RawBase string // defaults to DefaultRawBase
}

// ParseRepository parses "owner/name".
func ParseRepository(s string) (Repository, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, NewError(OpIndex, s, ErrInvalidPath)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}

// RawRoot returns the raw-content root URL for ref, with a trailing slash.
func (repo Repository) RawRoot(ref string) string {
	base := repo.RawBase
	if base == "" {
		base = DefaultRawBase
	}
	return fmt.Sprintf("%s/%s/%s/%s/", strings.TrimSuffix(base, "/"), repo.Owner, repo.Name, ref)
}

func (repo Repository) treeURL(ref string) string {
	base := repo.APIBase
	if base == "" {
		base = DefaultAPIBase
	}
	return fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", strings.TrimSuffix(base, "/"), repo.Owner, repo.Name, ref)
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// IndexRepository lists every file of repo on its default branch and
// registers it as a remote entry in store, after resetting the store root
// to the raw-content URL of that branch. A NotFound on "main" is retried
// once against "master". It returns the ref that was used.
func IndexRepository(ctx context.Context, store *Store, client *http.Client, repo Repository) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	ref := defaultRef
	data, err := httpGet(ctx, client, repo.treeURL(ref))
	if IsNotFound(err) {
		resolverLogger.Info("Ref %q not found for %s/%s, retrying with %q", ref, repo.Owner, repo.Name, fallbackRef)
		ref = fallbackRef
		data, err = httpGet(ctx, client, repo.treeURL(ref))
	}
	if err != nil {
		return "", err
	}

	var tree treeResponse
	if err := json.Unmarshal(data, &tree); err != nil {
		return "", NewError(OpIndex, repo.treeURL(ref), err)
	}
	if tree.Truncated {
		resolverLogger.Warn("Tree listing for %s/%s was truncated", repo.Owner, repo.Name)
	}

	// Listing paths are plain names, never escaped; bad ones are dropped
	// before the store is touched.
	var blobs []string
	for _, item := range tree.Tree {
		if item.Type != "blob" {
			continue
		}
		if normalizeDecoded(item.Path, "", item.Path) == RootKey || !utf8.ValidString(item.Path) {
			resolverLogger.Warn("Skipping unusable path %q in %s/%s", item.Path, repo.Owner, repo.Name)
			continue
		}
		blobs = append(blobs, item.Path)
	}

	store.Reset(repo.RawRoot(ref))
	count := 0
	for _, p := range blobs {
		if _, err := store.registerDecoded(p, Remote{}); err != nil {
			resolverLogger.Warn("Skipping %q: %v", p, err)
			continue
		}
		count++
	}

	resolverLogger.Info("Indexed %d files from %s/%s@%s", count, repo.Owner, repo.Name, ref)
	return ref, nil
}
