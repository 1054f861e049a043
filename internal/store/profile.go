package store

import (
	"mzassist/internal/types"
)

// Profile holds the user-facing identity read by the chat manager when
// composing greetings.
type Profile struct {
	UserName string `json:"user_name,omitempty"`
}

// Settings holds user preferences consumed by the core: the default
// response mode, the developer-mode flag that attaches debug metadata to
// model turns, and an optional user-supplied API key that takes precedence
// over the configured one.
type Settings struct {
	DeveloperMode bool           `json:"developer_mode,omitempty"`
	DefaultMode   types.ChatMode `json:"default_mode,omitempty"`
	APIKey        string         `json:"api_key,omitempty"`
}

// LoadProfile reads the stored profile; a missing or corrupted profile
// yields the zero value.
func (s *Store) LoadProfile() Profile {
	var p Profile
	if _, err := s.ReadJSON(CollectionProfile, &p); err != nil {
		return Profile{}
	}
	return p
}

// SaveProfile persists the profile.
func (s *Store) SaveProfile(p Profile) error {
	return s.WriteJSON(CollectionProfile, p)
}

// LoadSettings reads the stored settings. An unset or unknown default
// mode is returned empty; the chat manager falls back to the configured
// one.
func (s *Store) LoadSettings() Settings {
	var st Settings
	if _, err := s.ReadJSON(CollectionSettings, &st); err != nil {
		st = Settings{}
	}
	if !st.DefaultMode.Valid() {
		st.DefaultMode = ""
	}
	return st
}

// SaveSettings persists the settings.
func (s *Store) SaveSettings(st Settings) error {
	return s.WriteJSON(CollectionSettings, st)
}
