// Package prompts stores saved prompt templates as a JSON array in the XDG
// config directory.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Prompt is one saved template plus the idea it was written for.
type Prompt struct {
	Template  string    `json:"template"`
	Idea      string    `json:"idea"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes the saved prompt list.
type Store struct {
	path string
}

// NewStore returns a Store at $XDG_CONFIG_HOME/whisk/prompts.json, falling
// back to ~/.config/whisk/prompts.json.
func NewStore() (*Store, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "whisk")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, "prompts.json")}, nil
}

// List returns all saved prompts, newest first. A missing file is an empty
// list.
func (st *Store) List() ([]Prompt, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	var list []Prompt
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	return list, nil
}

// Add appends a prompt with the current timestamp and persists the list.
func (st *Store) Add(template, idea string) (Prompt, error) {
	list, err := st.List()
	if err != nil {
		return Prompt{}, err
	}
	p := Prompt{Template: template, Idea: idea, CreatedAt: time.Now().UTC()}
	list = append([]Prompt{p}, list...)
	return p, st.write(list)
}

// Remove deletes the prompt at index (0 = newest) and persists the list.
func (st *Store) Remove(index int) error {
	list, err := st.List()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("no prompt at index %d", index)
	}
	list = append(list[:index], list[index+1:]...)
	return st.write(list)
}

func (st *Store) write(list []Prompt) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist prompts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), "prompts-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist prompts: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist prompts: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist prompts: %w", err)
	}

	if err = os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("failed to persist prompts: %w", err)
	}
	return nil
}
