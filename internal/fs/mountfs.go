package fs

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	mountLogger = logging.GetLogger().WithPrefix("mount")
)

// MountFS is a read-only FUSE view of a virtual file store. Directories
// come from a snapshot of the store's tree; file contents are read through
// the resolver when opened.
type MountFS struct {
	resolver *vfs.Resolver
	conn     *fuse.Conn // FUSE connection
	uid      uint32     // User ID reported for every node
	gid      uint32     // Group ID reported for every node
	mountAt  time.Time

	mu   sync.RWMutex
	tree *vfs.Tree
}

// NewMountFS creates a view over the resolver's store.
func NewMountFS(resolver *vfs.Resolver) *MountFS {
	mountLogger.Info("Creating library view")

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			mountLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			mountLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	m := &MountFS{
		resolver: resolver,
		uid:      uid,
		gid:      gid,
		mountAt:  time.Now(),
	}
	m.Refresh()
	return m
}

// Refresh takes a new snapshot of the store's tree. Nodes handed out
// before the call keep the old snapshot.
func (m *MountFS) Refresh() {
	tree := m.resolver.Store().Tree()
	m.mu.Lock()
	m.tree = tree
	m.mu.Unlock()
	mountLogger.Debug("Tree snapshot has %d top-level entries", tree.Len())
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (m *MountFS) Root() (fusefs.Node, error) {
	mountLogger.Trace("Getting root directory node")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Dir{fs: m, key: vfs.RootKey, node: m.tree}, nil
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount mounts the view at mountPoint and serves it in the background.
func (m *MountFS) Mount(mountPoint string) error {
	mountLogger.Info("Mounting library view")
	mountLogger.Debug("Mount point: %s", mountPoint)
	mountLogger.Debug("Store root: %s", m.resolver.Store().Root())
	mountLogger.Debug("UID: %d, GID: %d", m.uid, m.gid)

	mountOpts := []fuse.MountOption{
		fuse.FSName("sfzplayer"),
		fuse.Subtype("sfzplayer"),
		fuse.ReadOnly(),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
	}

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	m.conn = c

	go func() {
		if err := fusefs.Serve(c, m); err != nil {
			mountLogger.Error("FUSE server error: %v", err)
		}
		mountLogger.Debug("FUSE server stopped")
	}()

	if err := waitForMount(mountPoint); err != nil {
		c.Close()
		mountLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	mountLogger.Info("Filesystem mounted successfully")
	return nil
}

// Unmount cleanly unmounts the filesystem.
func (m *MountFS) Unmount(mountPoint string) error {
	mountLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if m.conn == nil {
		return nil
	}

	err := fuse.Unmount(mountPoint)
	if err != nil {
		mountLogger.Error("Unmount failed: %v", err)
		return err
	}
	if err := m.conn.Close(); err != nil {
		mountLogger.Warn("Closing FUSE connection: %v", err)
	}
	m.conn = nil
	mountLogger.Info("Unmount completed successfully")
	return nil
}

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}
