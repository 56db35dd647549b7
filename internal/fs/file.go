package fs

import (
	"context"
	"sync"
	"syscall"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is a store entry exposed as a regular file.
type File struct {
	fs    *MountFS
	entry *vfs.Entry
}

// Attr implements the Node interface, returning the file's attributes.
// The size is known once the entry holds text or raw bytes; otherwise it
// is reported as zero and reads run with direct IO.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q", f.entry.Path)

	var size int64
	switch c := f.entry.Contents().(type) {
	case vfs.Text:
		size = int64(len(c))
	case vfs.Bytes:
		size = int64(len(c))
	}

	a.Mode = 0444
	a.Size = safeInt64ToUint64(size)
	a.Mtime = f.fs.mountAt
	a.Atime = f.fs.mountAt
	a.Ctime = f.fs.mountAt
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((size + 511) / 512)
	return nil
}

// Setattr implements the NodeSetattrer interface; the view is read-only.
func (f *File) Setattr(_ context.Context, _ *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	return readOnly(OpSetattr, f.entry.Path)
}

// Fsync implements the NodeFsyncer interface. Nothing is ever dirty.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}

// Open implements the NodeOpener interface, reading the entry's raw bytes
// through the resolver.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.entry.Path, req.Flags)

	if !req.Flags.IsReadOnly() {
		fileLogger.Warn("Attempted write access to read-only file: %q", f.entry.Path)
		return nil, readOnly(OpOpen, f.entry.Path)
	}

	data, err := f.fs.resolver.ReadRaw(ctx, f.entry)
	if err != nil {
		if IsTemporary(err) {
			fileLogger.Warn("Temporary failure opening %q: %v", f.entry.Path, err)
		} else {
			fileLogger.Error("Failed to open file %q: %v", f.entry.Path, err)
		}
		return nil, ToFuseError(NewFSError(OpOpen, f.entry.Path, err))
	}

	resp.Flags |= fuse.OpenDirectIO

	fileLogger.Debug("Opened file %q (%d bytes)", f.entry.Path, len(data))
	return &FileHandle{data: data, path: f.entry.Path}, nil
}

// FileHandle is an open file. It holds the bytes read at open time.
type FileHandle struct {
	data     []byte
	path     string // For logging purposes
	released bool
	mu       sync.RWMutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.RLock()
	defer fh.mu.RUnlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d",
		req.Size, fh.path, req.Offset)

	if fh.released {
		fileLogger.Warn("Read from released handle %q", fh.path)
		return syscall.EBADF
	}
	if req.Offset < 0 || req.Offset >= int64(len(fh.data)) {
		resp.Data = nil
		return nil
	}

	end := req.Offset + int64(req.Size)
	if end > int64(len(fh.data)) {
		end = int64(len(fh.data))
	}
	resp.Data = fh.data[req.Offset:end]
	return nil
}

// Release implements the HandleReleaser interface, dropping the buffered bytes.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Debug("Closing file %q", fh.path)
	fh.data = nil
	fh.released = true
	return nil
}
