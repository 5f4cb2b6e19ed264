package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS holds the observation, metadata and insight schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the gold table and its staging twin.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// migrationFile is one embedded SQL file, named by its version prefix.
type migrationFile struct {
	Name string
	SQL  string
}

// loadFiles returns the .sql files under dir ordered by name.
func loadFiles(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		files = append(files, migrationFile{Name: entry.Name(), SQL: string(data)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
