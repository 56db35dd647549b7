package fs

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"sfzplayer/internal/vfs"

	"bazil.org/fuse"
	"github.com/spf13/afero"
)

func lookupFile(t *testing.T, mfs *MountFS, name string) *File {
	t.Helper()
	root, _ := mfs.Root()
	node, err := root.(*Dir).Lookup(context.Background(), name)
	if err != nil {
		t.Fatalf("Failed to lookup %s: %v", name, err)
	}
	return node.(*File)
}

func TestFileOperations(t *testing.T) {
	testContent := "test file content"
	mfs, _ := setupTestFS(t, map[string]string{"testfile.txt": testContent})
	ctx := context.Background()
	file := lookupFile(t, mfs, "testfile.txt")

	t.Run("FileAttributes", func(t *testing.T) {
		attr := &fuse.Attr{}
		if err := file.Attr(ctx, attr); err != nil {
			t.Fatalf("Failed to get file attributes: %v", err)
		}
		if attr.Mode.IsDir() {
			t.Error("File should not be a directory")
		}
		if attr.Mode.Perm() != 0444 {
			t.Errorf("Expected mode 0444, got %v", attr.Mode.Perm())
		}
		if attr.Size != 0 {
			t.Errorf("Expected unknown size before load, got %d", attr.Size)
		}
	})

	t.Run("OpenAndRead", func(t *testing.T) {
		resp := &fuse.OpenResponse{}
		handle, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, resp)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		if resp.Flags&fuse.OpenDirectIO == 0 {
			t.Error("Expected direct IO")
		}
		fh := handle.(*FileHandle)

		reads := []struct {
			name   string
			offset int64
			size   int
			want   string
		}{
			{name: "whole", offset: 0, size: 100, want: testContent},
			{name: "middle", offset: 5, size: 4, want: "file"},
			{name: "past end", offset: 100, size: 10, want: ""},
		}
		for _, r := range reads {
			t.Run(r.name, func(t *testing.T) {
				readResp := &fuse.ReadResponse{}
				if err := fh.Read(ctx, &fuse.ReadRequest{Offset: r.offset, Size: r.size}, readResp); err != nil {
					t.Fatalf("Read failed: %v", err)
				}
				if string(readResp.Data) != r.want {
					t.Errorf("Expected %q, got %q", r.want, readResp.Data)
				}
			})
		}

		if err := fh.Release(ctx, &fuse.ReleaseRequest{}); err != nil {
			t.Errorf("Release failed: %v", err)
		}
		if err := fh.Read(ctx, &fuse.ReadRequest{Size: 1}, &fuse.ReadResponse{}); !errors.Is(err, syscall.EBADF) {
			t.Errorf("Expected EBADF after release, got %v", err)
		}
	})

	t.Run("OpenForWrite", func(t *testing.T) {
		_, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadWrite}, &fuse.OpenResponse{})
		if !errors.Is(err, syscall.EROFS) {
			t.Errorf("Expected EROFS, got %v", err)
		}
	})

	t.Run("SetattrAndFsync", func(t *testing.T) {
		if err := file.Setattr(ctx, &fuse.SetattrRequest{}, &fuse.SetattrResponse{}); !errors.Is(err, syscall.EROFS) {
			t.Errorf("Expected EROFS, got %v", err)
		}
		if err := file.Fsync(ctx, &fuse.FsyncRequest{}); err != nil {
			t.Errorf("Fsync failed: %v", err)
		}
	})
}

func TestOpenMissingSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := vfs.NewStore("/lib")
	if _, err := store.RegisterLocal("gone.txt", vfs.AferoHandle{Fs: fsys, Name: "/lib/gone.txt"}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	mfs := NewMountFS(vfs.NewResolver(store, vfs.WithLocalFs(fsys)))

	file := lookupFile(t, mfs, "gone.txt")
	_, err := file.Open(context.Background(), &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{})
	if !errors.Is(err, syscall.ENOENT) {
		t.Errorf("Expected ENOENT, got %v", err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestToFuseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "read only", err: NewFSError(OpMkdir, "x", ErrReadOnly), want: syscall.EROFS},
		{name: "not found", err: vfs.NewError(vfs.OpFetch, "x", vfs.ErrNotFound), want: syscall.ENOENT},
		{name: "invalid path", err: vfs.NewError(vfs.OpNormalize, "x", vfs.ErrInvalidPath), want: syscall.EINVAL},
		{name: "decode", err: vfs.NewError(vfs.OpDecode, "x", vfs.ErrDecode), want: syscall.EIO},
		{name: "unknown", err: errors.New("boom"), want: syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToFuseError(tt.err); got != tt.want {
				t.Errorf("ToFuseError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	if !IsTemporary(NewFSError(OpOpen, "x", timeoutErr{})) {
		t.Error("Expected wrapped timeout to be temporary")
	}
	if IsTemporary(NewFSError(OpOpen, "x", vfs.ErrNotFound)) {
		t.Error("Expected not-found to be permanent")
	}
}
