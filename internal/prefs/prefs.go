// Package prefs stores user preferences as a JSON file in the XDG config
// directory.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Captcha solving modes.
const (
	CaptchaAuto   = "auto"
	CaptchaManual = "manual"
)

// Preferences are the user-tunable settings. Zero values are never written:
// Load fills absent keys from Defaults so old files survive new keys.
type Preferences struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	CaptchaMode string `json:"captcha_mode"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Preferences {
	return Preferences{
		Theme:       "dark",
		Language:    "en",
		CaptchaMode: CaptchaAuto,
	}
}

// Store reads and writes a Preferences file.
type Store struct {
	path string
}

// NewStore returns a Store at $XDG_CONFIG_HOME/whisk/preferences.json,
// falling back to ~/.config/whisk/preferences.json.
func NewStore() (*Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, "preferences.json")}, nil
}

func configDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "whisk"), nil
}

// Load reads the preferences, merging the file over Defaults. A missing file
// yields pure defaults; keys the file omits keep their default values.
func (st *Store) Load() (Preferences, error) {
	p := Defaults()

	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("failed to parse preferences: %w", err)
	}

	// An old file may carry empty strings for keys it predates.
	d := Defaults()
	if p.Theme == "" {
		p.Theme = d.Theme
	}
	if p.Language == "" {
		p.Language = d.Language
	}
	if p.CaptchaMode == "" {
		p.CaptchaMode = d.CaptchaMode
	}
	return p, nil
}

// Save writes the preferences atomically via a temp file + os.Rename.
func (st *Store) Save(p Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), "preferences-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}

	if err = os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	return nil
}
