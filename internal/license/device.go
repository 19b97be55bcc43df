package license

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// DeviceIdentity is the stable, opaque identifier for this installation,
// sent to the license service to support per-seat limits. Ephemeral marks a
// session-scoped identity that could not be persisted; it is a degraded
// fallback, not an error.
type DeviceIdentity struct {
	ID        string
	Ephemeral bool
}

// Masked returns a shortened form of the id safe for logs and diagnostics.
func (d DeviceIdentity) Masked() string {
	if len(d.ID) <= 12 {
		return d.ID
	}
	return d.ID[:12] + "..."
}

// resolveDeviceIdentity loads the persisted device id, or generates and
// persists one on first use. The id is derived deterministically from stable
// machine properties so a reinstall keeps the same identity; a random id is
// used only when derivation is unavailable.
func resolveDeviceIdentity(path string, logger *slog.Logger) DeviceIdentity {
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return DeviceIdentity{ID: id}
		}
	}

	id, err := deriveDeviceID()
	if err != nil {
		id = uuid.NewString()
		logger.Warn("device id derivation unavailable, using random identity",
			slog.String("error", err.Error()),
		)
	}

	if err := persistDeviceID(path, id); err != nil {
		logger.Warn("device id not persisted, identity is session-scoped",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return DeviceIdentity{ID: id, Ephemeral: true}
	}
	return DeviceIdentity{ID: id}
}

// deriveDeviceID hashes stable local machine properties into an opaque
// digest. Hostname and primary MAC address survive reinstalls, which is the
// property the license service relies on for seat counting.
func deriveDeviceID() (string, error) {
	hostname, err := os.Hostname()
	if err != nil || strings.TrimSpace(hostname) == "" {
		return "", fmt.Errorf("hostname unavailable: %v", err)
	}

	mac, err := primaryMACAddress()
	if err != nil {
		return "", err
	}

	material := fmt.Sprintf("%s|%s|%s-%s",
		strings.ToLower(strings.TrimSpace(hostname)), mac, runtime.GOOS, runtime.GOARCH)
	digest := sha256.Sum256([]byte(material))
	return hex.EncodeToString(digest[:]), nil
}

// primaryMACAddress returns the hardware address of the first up,
// non-loopback interface, falling back to any interface with a usable MAC.
func primaryMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	// Fallback: any interface with a MAC, up or not.
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	return "", fmt.Errorf("no usable MAC address found")
}

func persistDeviceID(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id+"\n"), 0o600)
}
