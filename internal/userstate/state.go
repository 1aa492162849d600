// Package userstate manages the per-user state directory: telemetry consent,
// the anonymous analytics client id, one-time prompt records and the secrets
// store location. Each record is a small JSON file; none are transactional
// across processes.
package userstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateDirEnv overrides the state directory.
const StateDirEnv = "HATCH_STATE_DIR"

const (
	consentFile   = "telemetry-consent.json"
	analyticsFile = "analytics.json"
	extensionFile = "extension-prompt.json"
	secretsFile   = "secrets.json"
	cacheDir      = "cache"
)

// DefaultDir resolves the state directory from the environment lookup,
// falling back to the user config dir.
func DefaultDir(lookup func(string) (string, bool)) (string, error) {
	if dir, ok := lookup(StateDirEnv); ok && dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(base, "hatch"), nil
}

// TelemetryConsent records the user's answer to the telemetry prompt.
type TelemetryConsent struct {
	Consent   bool   `json:"consent"`
	DecidedAt string `json:"decided_at"`
}

type analyticsRecord struct {
	ClientID string `json:"client_id"`
}

type extensionRecord struct {
	Prompted   bool   `json:"prompted"`
	PromptedAt string `json:"prompted_at,omitempty"`
}

// Manager reads and writes state records under one directory.
type Manager struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// Dir returns the state directory.
func (m *Manager) Dir() string { return m.dir }

// SecretsPath returns where the secrets store lives.
func (m *Manager) SecretsPath() string { return filepath.Join(m.dir, secretsFile) }

// CacheDir returns the global cache directory.
func (m *Manager) CacheDir() string { return filepath.Join(m.dir, cacheDir) }

// TelemetryConsent returns the recorded consent. ok is false when the user
// was never asked (or the record is unreadable).
func (m *Manager) TelemetryConsent() (consent bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec TelemetryConsent
	found, err := m.readJSON(consentFile, &rec)
	if err != nil || !found {
		return false, false
	}
	return rec.Consent, true
}

// SetTelemetryConsent persists the user's answer.
func (m *Manager) SetTelemetryConsent(consent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeJSON(consentFile, TelemetryConsent{
		Consent:   consent,
		DecidedAt: m.now().Format(time.RFC3339),
	})
}

// ClientID returns the anonymous analytics id, creating and persisting one
// on first use.
func (m *Manager) ClientID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec analyticsRecord
	found, err := m.readJSON(analyticsFile, &rec)
	if err == nil && found && rec.ClientID != "" {
		return rec.ClientID, nil
	}

	rec.ClientID = uuid.NewString()
	if err := m.writeJSON(analyticsFile, rec); err != nil {
		return "", err
	}
	return rec.ClientID, nil
}

// ExtensionPrompted reports whether the editor-extension prompt was shown.
func (m *Manager) ExtensionPrompted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec extensionRecord
	found, err := m.readJSON(extensionFile, &rec)
	return err == nil && found && rec.Prompted
}

// MarkExtensionPrompted records that the prompt was shown.
func (m *Manager) MarkExtensionPrompted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeJSON(extensionFile, extensionRecord{
		Prompted:   true,
		PromptedAt: m.now().Format(time.RFC3339),
	})
}

// ClearCache removes the global cache directory.
func (m *Manager) ClearCache() error {
	if err := os.RemoveAll(m.CacheDir()); err != nil {
		return fmt.Errorf("failed to clear global cache: %w", err)
	}
	return nil
}

func (m *Manager) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

func (m *Manager) writeJSON(name string, v any) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(m.dir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
