package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sfzplayer/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("state")
)

const (
	backupDirName = ".sfzplayer-backups"
	backupPrefix  = "session-"
)

// Manager handles loading and saving the session file
type Manager struct {
	statePath   string
	backupDir   string
	backupCount int
	mu          sync.Mutex
}

// NewManager creates a state manager for statePath, creating its directory
// and backup directory. Relative paths resolve against the working directory.
func NewManager(statePath string) (*Manager, error) {
	logger.Debug("Creating new state manager with path: %s", statePath)

	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path %s: %w", statePath, err)
	}
	logger.Debug("Resolved state path: %s", absPath)

	stateDir := filepath.Dir(absPath)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	backupDir := filepath.Join(stateDir, backupDirName)
	logger.Debug("Creating backup directory: %s", backupDir)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", backupDir, err)
	}

	return &Manager{
		statePath:   absPath,
		backupDir:   backupDir,
		backupCount: 5,
	}, nil
}

// Path returns the absolute session file path.
func (sm *Manager) Path() string {
	return sm.statePath
}

// LoadState reads the session from disk. A missing or empty file yields a
// fresh session; nothing is written until SaveState.
func (sm *Manager) LoadState() (*Session, error) {
	logger.Debug("Loading state from: %s", sm.statePath)
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := os.ReadFile(sm.statePath)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		logger.Info("No session file, starting a new session")
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	logger.Debug("Parsing existing state file (%d bytes)", len(data))
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if session.RecentRoots == nil {
		session.RecentRoots = []string{}
	}
	if len(session.RecentRoots) > maxRecentRoots {
		session.RecentRoots = session.RecentRoots[:maxRecentRoots]
	}
	if session.Version == 0 {
		session.Version = sessionVersion
	}

	logger.Info("Session loaded (last root %q)", session.LastRoot)
	return &session, nil
}

// SaveState writes the session to disk, backing up the previous file first.
func (sm *Manager) SaveState(session *Session) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	logger.Debug("Saving state to: %s", sm.statePath)

	if err := sm.createBackup(); err != nil {
		// Continue with save even if backup fails
		logger.Warn("Failed to create backup: %v", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write through a temp file so a crash never leaves a truncated session.
	tmp := sm.statePath + ".tmp"
	logger.Trace("Writing %d bytes of state data", len(data))
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, sm.statePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	logger.Debug("State saved")
	return nil
}

// Backups returns the backup files, newest first.
func (sm *Manager) Backups() ([]string, error) {
	entries, err := os.ReadDir(sm.backupDir)
	if err != nil {
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, backupPrefix) && filepath.Ext(name) == ".json" {
			backups = append(backups, filepath.Join(sm.backupDir, name))
		}
	}
	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// createBackup copies the current session file into the backup directory
func (sm *Manager) createBackup() error {
	data, err := os.ReadFile(sm.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	backupPath := filepath.Join(sm.backupDir, backupPrefix+timestamp+".json")

	logger.Debug("Creating backup: %s", backupPath)
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	return sm.cleanupOldBackups()
}

// cleanupOldBackups removes old backup files, keeping only the most recent ones
func (sm *Manager) cleanupOldBackups() error {
	backups, err := sm.Backups()
	if err != nil {
		return err
	}

	for i := sm.backupCount; i < len(backups); i++ {
		logger.Debug("Removing old backup: %s", backups[i])
		if err := os.Remove(backups[i]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i], err)
		}
	}
	return nil
}
