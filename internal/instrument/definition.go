// Package instrument parses region-based (SFZ) and XML GUI instrument
// descriptions into one element map shape, and derives the sample map and
// the control descriptors from it.
package instrument

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("malformed instrument definition")

// ParseError reports malformed region or GUI text.
type ParseError struct {
	Format string // "sfz" or "gui"
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Format, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Msg)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Attributes is one element's attribute set, values kept verbatim.
type Attributes map[string]string

// Element is one section header or markup element.
type Element struct {
	Name     string
	Attrs    Attributes
	Parent   *Element
	Children Definition
	// Index is the element's position in document order.
	Index int
}

// Definition maps an element name to its elements in document order.
type Definition map[string][]*Element

func (d Definition) add(e *Element) {
	d[e.Name] = append(d[e.Name], e)
}

// First returns the first element named name.
func (d Definition) First(name string) (*Element, bool) {
	if els := d[name]; len(els) > 0 {
		return els[0], true
	}
	return nil, false
}

// Get returns the element's own attribute.
func (e *Element) Get(key string) (string, bool) {
	v, ok := e.Attrs[key]
	return v, ok
}

// Lookup returns key from the element or the nearest enclosing element
// that defines it.
func (e *Element) Lookup(key string) (string, bool) {
	for cur := e; cur != nil; cur = cur.Parent {
		if v, ok := cur.Attrs[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Int parses the element's own attribute as an integer.
func (e *Element) Int(key string) (int, bool) {
	v, ok := e.Attrs[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Descendants returns every element named name below e, in document order.
func (e *Element) Descendants(name string) []*Element {
	var out []*Element
	var walk func(d Definition)
	walk = func(d Definition) {
		for _, child := range sortedChildren(d) {
			if child.Name == name {
				out = append(out, child)
			}
			walk(child.Children)
		}
	}
	walk(e.Children)
	return out
}

func sortedChildren(d Definition) []*Element {
	var all []*Element
	for _, els := range d {
		all = append(all, els...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	return all
}

var noteOffsets = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// NoteNumber parses a MIDI note given as a number ("60") or a note name
// ("c4", "C#4", "db3", "a-1"), with c4 = 60.
func NoteNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if len(s) < 2 {
		return 0, false
	}

	s = strings.ToLower(s)
	offset, ok := noteOffsets[s[0]]
	if !ok {
		return 0, false
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		if len(rest) > 1 {
			offset--
			rest = rest[1:]
		}
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return (octave+1)*12 + offset, true
}
