// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package store

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
)

//go:embed migrations
var migrationsFS embed.FS

// Cached migration versions per dialect. The embedded FS is immutable.
var (
	cachedVersionsMu sync.Mutex
	cachedVersions   = map[Dialect][]uint{}
)

func migrationsDir(d Dialect) (string, error) {
	switch d {
	case DialectSQLite, DialectPostgres:
		return path.Join("migrations", string(d)), nil
	default:
		return "", oops.Code("UNSUPPORTED_DIALECT").With("dialect", string(d)).Errorf("unsupported dialect %q", d)
	}
}

// Schema returns every up migration of the dialect concatenated in version
// order. All statements are idempotent, so the result can be executed on
// every startup.
func Schema(d Dialect) (string, error) {
	dir, err := migrationsDir(d)
	if err != nil {
		return "", err
	}
	versions, err := allMigrationVersions(d)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, v := range versions {
		name, err := MigrationName(d, v)
		if err != nil {
			return "", err
		}
		body, err := fs.ReadFile(migrationsFS, path.Join(dir, name+".up.sql"))
		if err != nil {
			return "", oops.Code("MIGRATION_READ_FAILED").With("migration", name).Wrap(err)
		}
		b.Write(body)
		if !strings.HasSuffix(string(body), "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// allMigrationVersions returns all available migration versions of a dialect,
// sorted ascending. Returns a copy of the cached slice.
func allMigrationVersions(d Dialect) ([]uint, error) {
	cachedVersionsMu.Lock()
	defer cachedVersionsMu.Unlock()

	versions, ok := cachedVersions[d]
	if !ok {
		var err error
		versions, err = loadMigrationVersions(d)
		if err != nil {
			return nil, err
		}
		cachedVersions[d] = versions
	}
	result := make([]uint, len(versions))
	copy(result, versions)
	return result, nil
}

// loadMigrationVersions reads the dialect's migrations directory and parses
// version numbers. Malformed filenames are logged and skipped;
// TestMigrationsFS_EmbeddedFiles keeps the embedded set well-formed.
func loadMigrationVersions(d Dialect) ([]uint, error) {
	dir, err := migrationsDir(d)
	if err != nil {
		return nil, err
	}
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	versionSet := make(map[uint]struct{})
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var version uint
		if _, err := fmt.Sscanf(name, "%06d", &version); err != nil {
			slog.Warn("migration file name doesn't match expected format, skipping",
				"filename", name,
				"expected_format", "NNNNNN_name.up.sql",
				"error", err)
			continue
		}
		versionSet[version] = struct{}{}
	}

	versions := make([]uint, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// MigrationName returns the name of a migration by version number, in the
// format NNNNNN_name. Returns ("", nil) when the version does not exist.
func MigrationName(d Dialect, version uint) (string, error) {
	dir, err := migrationsDir(d)
	if err != nil {
		return "", err
	}
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return "", oops.Code("MIGRATION_READ_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	prefix := fmt.Sprintf("%06d_", version)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".up.sql") {
			return strings.TrimSuffix(name, ".up.sql"), nil
		}
	}
	return "", nil
}
