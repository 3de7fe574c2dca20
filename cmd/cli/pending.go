package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

// pendingStore keeps the dirty set between CLI invocations
type pendingStore struct {
	path string
}

func defaultPendingStore() (*pendingStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return &pendingStore{path: filepath.Join(home, ".employeedir", "pending.json")}, nil
}

// Load returns the saved rows; a missing file is an empty dirty set
func (p *pendingStore) Load() ([]domain.Employee, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending edits: %w", err)
	}

	var rows []domain.Employee
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	return rows, nil
}

func (p *pendingStore) Save(rows []domain.Employee) error {
	if len(rows) == 0 {
		return p.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(p.path), err)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pending edits: %w", err)
	}
	return os.WriteFile(p.path, data, 0o600)
}

func (p *pendingStore) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear pending edits: %w", err)
	}
	return nil
}
