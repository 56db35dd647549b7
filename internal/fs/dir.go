package fs

import (
	"context"
	"os"
	"syscall"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a directory node of the store's tree.
type Dir struct {
	fs   *MountFS
	key  string
	node *vfs.Tree
}

func (d *Dir) childKey(name string) string {
	if d.key == vfs.RootKey {
		return name
	}
	return d.key + "/" + name
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.key)
	a.Mode = os.ModeDir | 0555
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid
	a.Mtime = d.fs.mountAt
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.key)

	child, ok := d.node.Child(name)
	if !ok {
		dirLogger.Debug("Path not found: %q", d.childKey(name))
		return nil, syscall.ENOENT
	}

	key := d.childKey(name)
	if !child.IsLeaf() {
		if child.IsFile() {
			dirLogger.Warn("%q is both a file and a directory; showing the directory", key)
		}
		return &Dir{fs: d.fs, key: key, node: child}, nil
	}

	entry, ok := d.fs.resolver.Store().Get(key)
	if !ok {
		// The store was reset after this snapshot was taken.
		dirLogger.Warn("Tree leaf %q has no entry", key)
		return nil, syscall.ENOENT
	}
	return &File{fs: d.fs, entry: entry}, nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.key)

	entries := make([]fuse.Dirent, 0, d.node.Len()+2)
	entries = append(entries, fuse.Dirent{Name: ".", Type: fuse.DT_Dir})
	entries = append(entries, fuse.Dirent{Name: "..", Type: fuse.DT_Dir})

	for _, name := range d.node.Names() {
		child, _ := d.node.Child(name)
		typ := fuse.DT_Dir
		if child.IsLeaf() {
			typ = fuse.DT_File
		}
		entries = append(entries, fuse.Dirent{Name: name, Type: typ})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.key, len(entries))
	return entries, nil
}

// Setattr implements the NodeSetattrer interface; the view is read-only.
func (d *Dir) Setattr(_ context.Context, _ *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	return readOnly(OpSetattr, d.key)
}

// Mkdir implements the NodeMkdirer interface; the view is read-only.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	dirLogger.Warn("Refusing mkdir %q in %q", req.Name, d.key)
	return nil, readOnly(OpMkdir, d.childKey(req.Name))
}

// Create implements the NodeCreater interface; the view is read-only.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, _ *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	dirLogger.Warn("Refusing create %q in %q", req.Name, d.key)
	return nil, nil, readOnly(OpCreate, d.childKey(req.Name))
}

// Remove implements the NodeRemover interface; the view is read-only.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	dirLogger.Warn("Refusing remove %q from %q", req.Name, d.key)
	return readOnly(OpRemove, d.childKey(req.Name))
}

// Rename implements the NodeRenamer interface; the view is read-only.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, _ fusefs.Node) error {
	dirLogger.Warn("Refusing rename %q to %q", req.OldName, req.NewName)
	return readOnly(OpRename, d.childKey(req.OldName))
}
