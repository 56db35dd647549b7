// Package state persists the player session between runs.
package state

import "time"

const (
	sessionVersion = 1
	maxRecentRoots = 10
)

// Session is what the player remembers between runs.
type Session struct {
	// Root the library was last opened from (directory, URL or repository).
	LastRoot string `json:"last_root"`

	// Instrument key last loaded under LastRoot.
	LastInstrument string `json:"last_instrument"`

	// Previously opened roots, most recent first.
	RecentRoots []string `json:"recent_roots"`

	UpdatedAt time.Time `json:"updated_at"`

	// Version for future compatibility
	Version int `json:"version"`
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		RecentRoots: []string{},
		Version:     sessionVersion,
	}
}

// Remember records that instrument was loaded from root. root moves to the
// front of RecentRoots, which keeps at most ten entries.
func (s *Session) Remember(root, instrument string) {
	if root != s.LastRoot {
		s.LastInstrument = ""
	}
	s.LastRoot = root
	if instrument != "" {
		s.LastInstrument = instrument
	}

	recent := make([]string, 0, len(s.RecentRoots)+1)
	recent = append(recent, root)
	for _, r := range s.RecentRoots {
		if r != root && len(recent) < maxRecentRoots {
			recent = append(recent, r)
		}
	}
	s.RecentRoots = recent
	s.UpdatedAt = time.Now()
}

// InstrumentFor returns the last instrument when root matches LastRoot.
func (s *Session) InstrumentFor(root string) (string, bool) {
	if root == "" || root != s.LastRoot || s.LastInstrument == "" {
		return "", false
	}
	return s.LastInstrument, true
}
