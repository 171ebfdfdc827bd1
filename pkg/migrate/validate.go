package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationFile = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
	beginBlock = "-- +goose StatementBegin"
	endBlock   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir before it reaches goose. It
// reports all problems at once rather than stopping at the first file.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations directory not set")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var errs error
	versions := make(map[string]string)
	found := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		found++

		m := migrationFile.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: name must look like 20260301090000_create_orders.sql", name))
			continue
		}
		if other, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkSections(name, string(data)))
	}

	if found == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no migrations in %s", dir))
	}
	return errs
}

// checkSections requires an Up section ahead of a Down section and balanced
// statement blocks.
func checkSections(name, sql string) error {
	up, down := strings.Index(sql, upMarker), strings.Index(sql, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing %q", name, upMarker)
	case down < 0:
		return fmt.Errorf("%s: missing %q, every migration must be reversible", name, downMarker)
	case down < up:
		return fmt.Errorf("%s: %q appears before %q", name, downMarker, upMarker)
	}
	if b, e := strings.Count(sql, beginBlock), strings.Count(sql, endBlock); b != e {
		return fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, b, e)
	}
	return nil
}
