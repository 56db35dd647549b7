package vfs

import (
	"sort"
	"strings"
)

// Tree is a navigation index over store keys: each node maps a path
// segment to a child node. A node without a children map is a file leaf.
// It is derived data; BuildTree over the store's keys always reproduces it.
// A key that is both a file and a prefix of other keys is a directory node
// that still reports IsFile.
type Tree struct {
	children map[string]*Tree
	file     bool
}

// NewTree returns an empty directory node.
func NewTree() *Tree {
	return &Tree{children: make(map[string]*Tree)}
}

// BuildTree builds a tree from a set of keys.
func BuildTree(keys []string) *Tree {
	t := NewTree()
	for _, k := range keys {
		t.Insert(k)
	}
	return t
}

// Insert walks key segment by segment, creating intermediate directory
// nodes, and marks the final segment as a file. It reports whether the key
// overlaps a file and a directory: a file gaining children, or a key that
// already has children.
func (t *Tree) Insert(key string) bool {
	if key == RootKey {
		return false
	}
	overlap := false
	node := t
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		if node.children == nil {
			// A file leaf gaining children becomes a directory.
			node.children = make(map[string]*Tree)
			overlap = overlap || node.file
		}
		child, ok := node.children[seg]
		if !ok {
			child = &Tree{}
			if i < len(segments)-1 {
				child.children = make(map[string]*Tree)
			}
			node.children[seg] = child
		}
		node = child
	}
	if node.children != nil {
		overlap = true
	}
	node.file = true
	return overlap
}

// Lookup returns the node at key; RootKey returns t itself.
func (t *Tree) Lookup(key string) (*Tree, bool) {
	if key == RootKey {
		return t, true
	}
	node := t
	for _, seg := range strings.Split(key, "/") {
		child, ok := node.children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// IsLeaf reports whether the node is a file without children.
func (t *Tree) IsLeaf() bool {
	return t.children == nil
}

// IsFile reports whether a key ends at this node, with or without children.
func (t *Tree) IsFile() bool {
	return t.file
}

// Names returns the sorted child segment names.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.children))
	for name := range t.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns the node for one segment.
func (t *Tree) Child(name string) (*Tree, bool) {
	child, ok := t.children[name]
	return child, ok
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	return len(t.children)
}

// Equal reports whether two trees have the same shape.
func (t *Tree) Equal(o *Tree) bool {
	if t.IsLeaf() != o.IsLeaf() || t.file != o.file || len(t.children) != len(o.children) {
		return false
	}
	for name, child := range t.children {
		other, ok := o.children[name]
		if !ok || !child.Equal(other) {
			return false
		}
	}
	return true
}

func (t *Tree) clone() *Tree {
	if t.children == nil {
		return &Tree{file: t.file}
	}
	c := NewTree()
	c.file = t.file
	for name, child := range t.children {
		c.children[name] = child.clone()
	}
	return c
}
