package vfs

import (
	"path"
	"strings"
	"unicode/utf8"

	"sfzplayer/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// RootKey is the key returned by Normalize when a path denotes the store root.
// It never names a file.
const RootKey = ""

// IsRemote reports whether p carries an HTTP scheme.
func IsRemote(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Normalize turns a raw path into a root-relative, decoded store key.
// Escapes are decoded once, the root prefix and any leading slash are
// removed and the result is cleaned. A path equal to the root yields RootKey.
// A '%' that does not start a two-digit hex escape is kept as is, so keys
// holding a literal '%' normalize to themselves. Escapes that decode to
// invalid UTF-8 are rejected with ErrInvalidPath.
func Normalize(raw, root string) (string, error) {
	decoded, ok := unescape(raw)
	if !ok {
		return "", NewError(OpNormalize, raw, ErrInvalidPath)
	}
	rootDecoded, ok := unescape(root)
	if !ok {
		rootDecoded = root
	}
	return normalizeDecoded(decoded, rootDecoded, raw), nil
}

// normalizeDecoded is Normalize for names that are already decoded, such
// as file names from a directory walk or a repository listing.
func normalizeDecoded(name, root, raw string) string {
	key := name
	if root != "" {
		trimmedRoot := strings.TrimSuffix(root, "/")
		if key == trimmedRoot || key == root {
			key = ""
		} else if strings.HasPrefix(key, trimmedRoot+"/") {
			key = strings.TrimPrefix(key, trimmedRoot+"/")
		}
	}

	if IsRemote(key) {
		// Outside the root; keep the absolute URL as its own key.
		pathLogger.Trace("Normalized %q -> %q (foreign URL)", raw, key)
		return key
	}

	key = strings.TrimLeft(key, "/")
	if key == "" {
		return RootKey
	}

	cleaned := path.Clean(key)
	if cleaned == "." {
		cleaned = RootKey
	}
	pathLogger.Trace("Normalized %q -> %q", raw, cleaned)
	return cleaned
}

// unescape decodes %XX escapes and leaves any other '%' in place.
func unescape(s string) (string, bool) {
	if !strings.Contains(s, "%") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	out := b.String()
	return out, utf8.ValidString(out)
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// ExtensionOf returns the text after the last '.' of the final segment,
// or "" when there is none.
func ExtensionOf(p string) string {
	base := BaseOf(p)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return base[i+1:]
}

// BaseOf returns the final path segment.
func BaseOf(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// DirectoryOf returns the parent key of p, RootKey for top-level keys.
func DirectoryOf(p string) string {
	p = strings.TrimSuffix(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return RootKey
	}
	return p[:i]
}

// SubdirectoryRelativeTo returns the directory key of raw relative to root.
func SubdirectoryRelativeTo(raw, root string) (string, error) {
	key, err := Normalize(raw, root)
	if err != nil {
		return "", err
	}
	return DirectoryOf(key), nil
}

// Join appends rel to a root, inserting exactly one separator.
func Join(root, rel string) string {
	if root == "" {
		return rel
	}
	return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(rel, "/")
}
