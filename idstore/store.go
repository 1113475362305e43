package idstore

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/reseat-project/reseat/identity"
	"github.com/reseat-project/reseat/interfaces"
)

// Store resets the device-identity fields in an identity document.
type Store struct {
	log *slog.Logger
	now func() time.Time
}

// New creates a Store.
func New(log *slog.Logger) *Store {
	return &Store{log: log, now: time.Now}
}

// DefaultDocumentPath returns the platform-default location of the
// client application's identity document.
func DefaultDocumentPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve user config directory: %w", err)
	}
	return filepath.Join(configDir, "Cursor", "User", "globalStorage", "storage.json"), nil
}

// Reset replaces the four device-identity fields in the document at path
// with fresh random draws and returns the new set. The original document
// is backed up first and replaced atomically; all unrelated keys are
// preserved.
func (s *Store) Reset(path string) (identity.DeviceIdentitySet, error) {
	var zero identity.DeviceIdentitySet

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return zero, fmt.Errorf("%w: %s", interfaces.ErrIdentityDocMissing, path)
	} else if err != nil {
		return zero, fmt.Errorf("could not stat identity document: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return zero, fmt.Errorf("%w: %s", interfaces.ErrIdentityDocPermission, path)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return zero, fmt.Errorf("could not read identity document: %w", err)
	}

	if backupPath, err := s.backup(path, data); err != nil {
		s.log.Warn("Could not back up identity document, continuing without backup",
			slog.String("path", path), "err", err)
	} else {
		s.log.Info("Backed up identity document", slog.String("backup", backupPath))
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return zero, fmt.Errorf("identity document is not valid JSON, aborting before write: %w", err)
	}
	if doc == nil {
		return zero, fmt.Errorf("identity document is empty, aborting before write")
	}

	set, err := identity.NewDeviceIdentitySet()
	if err != nil {
		return zero, fmt.Errorf("could not generate device identity: %w", err)
	}
	for k, v := range set.Map() {
		doc[k] = v
	}

	if err := s.replace(path, doc); err != nil {
		return zero, err
	}

	s.log.Info("Reset device identity",
		slog.String("path", path),
		slog.String(identity.KeyDevDeviceID, set.DevDeviceID),
		slog.String(identity.KeySqmID, set.SqmID))
	return set, nil
}

// backup copies the document pre-image to a timestamped sibling file and
// returns the backup path. Backups are retained indefinitely for manual
// rollback.
func (s *Store) backup(path string, data []byte) (string, error) {
	backupPath := fmt.Sprintf("%s.bak.%s", path, s.now().Format("20060102-150405.000000000"))
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return "", err
	}
	return backupPath, nil
}

// replace serializes doc to a temporary file in the document's directory
// and renames it over the original.
func (s *Store) replace(path string, doc map[string]any) error {
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("could not serialize identity document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".identity-*.json")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("could not write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("could not close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("could not replace identity document: %w", err)
	}
	return nil
}
