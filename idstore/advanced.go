package idstore

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/reseat-project/reseat/identity"
)

// disabledUpdateURL is intentionally non-resolving so the client
// application's update checks fail quietly.
const disabledUpdateURL = "https://invalid.url"

var updateURLPattern = regexp.MustCompile(`"updateUrl"\s*:\s*"[^"]*"`)

// AdvancedStore performs the identity reset and additionally rewrites
// the application's update URL in its product document. The rewrite is an
// independent side effect: its failure never rolls back the reset.
type AdvancedStore struct {
	*Store
	log *slog.Logger

	// ProductDocPath locates the product document. Empty disables the
	// update-URL rewrite.
	ProductDocPath string
}

// NewAdvanced creates an AdvancedStore.
func NewAdvanced(log *slog.Logger, productDocPath string) *AdvancedStore {
	return &AdvancedStore{
		Store:          New(log),
		log:            log,
		ProductDocPath: productDocPath,
	}
}

// Reset resets the device identity at path, then best-effort disables
// auto-update checks.
func (s *AdvancedStore) Reset(path string) (identity.DeviceIdentitySet, error) {
	set, err := s.Store.Reset(path)
	if err != nil {
		return set, err
	}

	if s.ProductDocPath != "" {
		if err := s.DisableUpdates(); err != nil {
			s.log.Warn("Could not rewrite update URL, auto-update checks stay enabled",
				slog.String("path", s.ProductDocPath), "err", err)
		}
	}
	return set, nil
}

// DisableUpdates rewrites the product document's update URL to a
// non-resolving value, with the same backup discipline as the identity
// reset. The rewrite is textual so the rest of the document keeps its
// exact formatting.
func (s *AdvancedStore) DisableUpdates() error {
	data, err := os.ReadFile(s.ProductDocPath)
	if err != nil {
		return fmt.Errorf("could not read product document: %w", err)
	}

	if !updateURLPattern.Match(data) {
		return fmt.Errorf("product document has no update URL field")
	}

	backupPath := fmt.Sprintf("%s.bak.%s", s.ProductDocPath, s.now().Format("20060102-150405.000000000"))
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		s.log.Warn("Could not back up product document, continuing without backup",
			slog.String("path", s.ProductDocPath), "err", err)
	}

	rewritten := updateURLPattern.ReplaceAll(data, []byte(fmt.Sprintf(`"updateUrl": %q`, disabledUpdateURL)))

	info, err := os.Stat(s.ProductDocPath)
	if err != nil {
		return fmt.Errorf("could not stat product document: %w", err)
	}
	if err := os.WriteFile(s.ProductDocPath, rewritten, info.Mode().Perm()); err != nil {
		return fmt.Errorf("could not write product document: %w", err)
	}

	s.log.Info("Disabled application auto-update checks",
		slog.String("path", s.ProductDocPath), slog.String("updateUrl", disabledUpdateURL))
	return nil
}
