package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const migrationsDir = "migrations"

// Separate from migrate's default name so a database managed by other tooling
// before this runner existed is detected as unbaselined.
const metadataTable = "schema_migrations_migrate"

// Run applies the file-based migrations in ./migrations. A database that
// already carries the schema but has no migrate metadata is baselined to the
// newest migration version before Up runs.
func Run(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	driver, err := pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: metadataTable})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if needsBaseline(sqlDB) {
		if latest := latestVersion(migrationsDir); latest > 0 {
			log.Printf("[MIGRATE] Existing schema without metadata, baselining to version %d", latest)
			if err := m.Force(int(latest)); err != nil {
				log.Printf("[MIGRATE] Baseline to version %d failed: %v", latest, err)
			}
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}

	log.Printf("[MIGRATE] Schema up to date")
	return nil
}

// needsBaseline reports whether the schema exists but migrate's metadata
// table does not.
func needsBaseline(db *sql.DB) bool {
	return tableExists(db, "users") && !tableExists(db, metadataTable)
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	row := db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", name)
	if err := row.Scan(&exists); err != nil {
		return false
	}
	return exists
}

// latestVersion returns the highest numeric version prefix (000001_...) among
// the migration files, or 0 if none parse.
func latestVersion(dir string) int64 {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	re := regexp.MustCompile(`^0*([0-9]+)_`)
	var max int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		parts := re.FindStringSubmatch(f.Name())
		if len(parts) < 2 {
			continue
		}
		if v, _ := strconv.ParseInt(parts[1], 10, 64); v > max {
			max = v
		}
	}
	return max
}
