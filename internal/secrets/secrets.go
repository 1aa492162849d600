// Package secrets is a small keyed store for values tasks read at run time,
// such as API keys. The whole store is one JSON file that every mutation
// rewrites through a temp file and a rename.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"hatch/internal/logging"
)

// FormatVersion tags the file layout.
const FormatVersion = "hatch-secrets-1"

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrUnknownFormat is returned when the store file has a different layout.
var ErrUnknownFormat = errors.New("unknown secrets file format")

// ValidKey reports whether key can be used as a secret name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

type entry struct {
	Value string `json:"value"`
}

type fileContents struct {
	Format  string           `json:"_format"`
	Secrets map[string]entry `json:"secrets"`
}

// Manager reads and writes the secrets file.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager creates a manager for the store at path. The file is created
// on the first Set.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the store file path.
func (m *Manager) Path() string {
	return m.path
}

// Set stores value under key, replacing any previous value.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents, err := m.read()
	if err != nil {
		return err
	}
	contents.Secrets[key] = entry{Value: value}
	logging.SecretsDebug("setting secret %s", key)
	return m.write(contents)
}

// Get returns the value stored under key.
func (m *Manager) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents, err := m.read()
	if err != nil {
		return "", false, err
	}
	e, ok := contents.Secrets[key]
	return e.Value, ok, nil
}

// List returns all keys, sorted.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents, err := m.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(contents.Secrets))
	for k := range contents.Secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key and reports whether it existed. Deleting an absent key
// leaves the file untouched.
func (m *Manager) Delete(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents, err := m.read()
	if err != nil {
		return false, err
	}
	if _, ok := contents.Secrets[key]; !ok {
		return false, nil
	}
	delete(contents.Secrets, key)
	logging.SecretsDebug("deleting secret %s", key)
	return true, m.write(contents)
}

func (m *Manager) read() (*fileContents, error) {
	contents := &fileContents{Format: FormatVersion, Secrets: make(map[string]entry)}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return contents, nil
		}
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	if len(data) == 0 {
		return contents, nil
	}

	if err := json.Unmarshal(data, contents); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", m.path, err)
	}
	if contents.Format != FormatVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, contents.Format)
	}
	if contents.Secrets == nil {
		contents.Secrets = make(map[string]entry)
	}
	return contents, nil
}

func (m *Manager) write(contents *fileContents) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".secrets-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync secrets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close secrets: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("failed to replace secrets file: %w", err)
	}
	return nil
}
