package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the single source of truth for the application's file locations.
// Everything lives under the executable directory, never the current working
// directory, so launching from a shortcut and launching from a shell see the
// same state.
type Paths struct {
	ExecutableDir string
	DataDir       string
	LogsDir       string

	ConfigFile       string
	LicenseCacheFile string
	DeviceIDFile     string
	LogFile          string
}

// GetPaths resolves the path set from the running executable's location.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("resolve executable symlinks: %w", err)
	}
	return PathsFrom(filepath.Dir(exe)), nil
}

// PathsFrom builds the path set rooted at the given directory. Split out
// from GetPaths so tests can root it at a temp dir.
func PathsFrom(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	logsDir := filepath.Join(baseDir, "logs")
	return &Paths{
		ExecutableDir:    baseDir,
		DataDir:          dataDir,
		LogsDir:          logsDir,
		ConfigFile:       filepath.Join(baseDir, "voxdesk.yml"),
		LicenseCacheFile: filepath.Join(dataDir, "license_cache.json"),
		DeviceIDFile:     filepath.Join(dataDir, "device_id"),
		LogFile:          filepath.Join(logsDir, "voxdesk.log"),
	}
}

// EnsureDirs creates the writable directories the application needs.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
