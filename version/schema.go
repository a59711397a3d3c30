package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SnapshotSchemaVersion is the schema version written into persisted
// snapshots. The major is bumped on breaking layout changes; snapshots
// written by a different major are rejected on restore.
const SnapshotSchemaVersion = "1.0.0"

// ValidateSchemaVersion checks that v is a valid semantic version.
// Accepts an optional "v" prefix.
func ValidateSchemaVersion(v string) error {
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(v, "v")); err != nil {
		return fmt.Errorf("invalid schema version %q: %w", v, err)
	}
	return nil
}

// CompatibleSchema reports whether a snapshot written with schema version v
// can be restored by this build.
func CompatibleSchema(v string) error {
	parsed, err := semver.StrictNewVersion(strings.TrimPrefix(v, "v"))
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", v, err)
	}

	current := semver.MustParse(SnapshotSchemaVersion)
	if parsed.Major() != current.Major() {
		return fmt.Errorf("incompatible schema version %q (current %s)", v, SnapshotSchemaVersion)
	}
	return nil
}
