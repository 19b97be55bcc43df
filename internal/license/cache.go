package license

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ValidationCache is the durable record of the last validation outcome. It
// is the only persistent state the validator owns; deleting the file forces
// a fresh online validation on the next call.
//
// LastSuccessfulValidation is only advanced by attempts that reached the
// service and got a positive online answer, so it is always at or before
// LastValidated. Results served from offline grace are never written back,
// since they do not represent a genuine server response.
type ValidationCache struct {
	LastValidated            *time.Time        `json:"last_validated,omitempty"`
	LastSuccessfulValidation *time.Time        `json:"last_successful_validation,omitempty"`
	ValidationResult         *ValidationResult `json:"validation_result,omitempty"`
}

// loadCache reads the cache file. A missing or corrupt file is an empty
// cache, not an error: the worst case is one redundant online validation.
func loadCache(path string, logger *slog.Logger) ValidationCache {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("license cache unreadable, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return ValidationCache{}
	}

	var cache ValidationCache
	if err := json.Unmarshal(data, &cache); err != nil {
		logger.Warn("license cache corrupt, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return ValidationCache{}
	}
	return cache
}

// save writes the cache file, creating parent directories as needed.
// Concurrent processes are not coordinated; the last writer wins, which is
// acceptable because validation results are idempotent snapshots.
func (c ValidationCache) save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal license cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write license cache: %w", err)
	}
	return nil
}
