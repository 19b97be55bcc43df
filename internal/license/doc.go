// Package license implements client-side license validation for VoxDesk.
// It authorizes the application against the remote license service, caches
// the outcome on disk to avoid redundant network calls, and honors a bounded
// offline grace period when the service is unreachable.
//
// # Validation Flow
//
// Each call to Validate follows one of three paths:
//
//  1. Cached: the last recorded validation is younger than the validation
//     interval, so the cached result is returned untouched. No network, no
//     disk write. This is the path taken on almost every call.
//  2. Online: the cache is stale (or force was requested), so the validator
//     POSTs the license key, device id, and app version to the remote
//     endpoint and persists the structured answer, positive or negative.
//  3. Offline grace: the endpoint could not be reached. If the last
//     successful online validation is within the grace period, the cached
//     result is served annotated with offline_mode; otherwise a grace-expired
//     (or no-offline-cache) rejection is returned.
//
// A definitive rejection from the server (invalid key, inactive, expired)
// advances last_validated but never last_successful_validation, so a later
// network outage still falls back to the last positive answer, if any.
//
// # Failure Semantics
//
// No failure escapes as an error across the public surface. Unreachable
// endpoints, malformed cache files, and unwritable identity files all map to
// well-formed ValidationResult values carrying an error code, letting the
// host degrade to the free feature set instead of aborting.
//
// # Device Identity
//
// The validator derives a stable per-installation identifier from local
// machine properties (hostname, primary MAC address, platform) and persists
// it as a one-line file. When derivation or persistence fails it degrades to
// a session-scoped random identity rather than failing validation.
package license
