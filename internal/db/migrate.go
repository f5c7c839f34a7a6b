package db

import (
	"context" // Cancellation
	"embed"   // Bundled migration scripts
	"fmt"     // Error wrapping
	"io/fs"   // Reading the bundle
	"path"    // Bundle paths
	"regexp"  // File name pattern
	"sort"    // Version ordering
	"strconv" // Version parsing
	"strings" // Statement splitting
	"time"    // Applied-at timestamps

	"kudo/internal/domain"   // Persisted models
	"kudo/internal/security" // Script checksums

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // ORM
)

//go:embed migrations/*/*.sql
var migrationFiles embed.FS

var migrationFileName = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`) // NNNN_name.sql

// postgresCollation is created by the first postgres migration
const postgresCollation = `"icu_en-u-ks-primary"`

// SchemaMigration records an applied migration
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"` // NNNN prefix of the script
	Name      string    `gorm:"size:128;not null"`              // Script name without prefix
	Checksum  string    `gorm:"size:16;not null"`               // Fingerprint of the script body
	AppliedAt time.Time `gorm:"not null"`                       // When it ran
}

// TableName keeps the history table apart from the domain tables
func (SchemaMigration) TableName() string {
	return "__SchemaMigrations"
}

// migration is one bundled script
type migration struct {
	version    int
	name       string
	checksum   string
	statements []string
}

// EnsureMigrated applies every bundled migration that has not run yet. It is safe
// to call on every startup.
func (g *Gateway) EnsureMigrated(ctx context.Context) error {
	migrations, err := loadMigrations(g.dialect)
	if err != nil {
		return unavailable(ctx, err)
	}
	db := g.db.WithContext(ctx)
	// AutoMigrate keeps the history table itself current
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return unavailable(ctx, fmt.Errorf("migration history: %w", err))
	}
	var applied []SchemaMigration
	if err := db.Order("version").Find(&applied).Error; err != nil {
		return unavailable(ctx, fmt.Errorf("read migration history: %w", err))
	}
	appliedByVersion := make(map[int]SchemaMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	count := 0
	for _, m := range migrations {
		if a, ok := appliedByVersion[m.version]; ok {
			if a.Checksum != m.checksum {
				logrus.WithFields(logrus.Fields{
					"version":  m.version,  // Migration version
					"name":     m.name,     // Migration name
					"recorded": a.Checksum, // Checksum in the database
					"bundled":  m.checksum, // Checksum of the bundled script
				}).Warn("Applied migration differs from bundled script")
			}
			continue
		}
		// Each script and its history row commit together
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, stmt := range m.statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return tx.Create(&SchemaMigration{
				Version:   m.version,
				Name:      m.name,
				Checksum:  m.checksum,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return unavailable(ctx, fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err))
		}
		logrus.WithFields(logrus.Fields{
			"version": m.version, // Migration version
			"name":    m.name,    // Migration name
		}).Info("Migration applied")
		count++
	}
	logrus.WithFields(logrus.Fields{
		"dialect": g.dialect, // Target store
		"applied": count,     // Newly applied scripts
	}).Info("Migration completed.")
	return nil
}

// EnsureDeleted drops every table this module owns. Intended for test and reset
// environments only.
func (g *Gateway) EnsureDeleted(ctx context.Context) error {
	db := g.db.WithContext(ctx)
	// Children first so references never dangle mid-drop
	tables := []any{&domain.FinancialTransaction{}, &domain.Category{}, &domain.User{}, &SchemaMigration{}}
	if err := db.Migrator().DropTable(tables...); err != nil {
		return unavailable(ctx, fmt.Errorf("drop tables: %w", err))
	}
	if g.dialect == DialectPostgres {
		if err := db.Exec("DROP COLLATION IF EXISTS " + postgresCollation).Error; err != nil {
			return unavailable(ctx, fmt.Errorf("drop collation: %w", err))
		}
	}
	logrus.WithField("dialect", g.dialect).Warn("Database schema dropped")
	return nil
}

// loadMigrations reads the bundled scripts for dialect in version order
func loadMigrations(dialect string) ([]migration, error) {
	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for dialect %q: %w", dialect, err)
	}
	var migrations []migration
	for _, entry := range entries {
		match := migrationFileName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1]) // Pattern guarantees digits
		body, err := fs.ReadFile(migrationFiles, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, migration{
			version:    version,
			name:       match[2],
			checksum:   security.Fingerprint(body),
			statements: splitStatements(string(body)),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version == migrations[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %04d", migrations[i].version)
		}
	}
	return migrations, nil
}

// splitStatements breaks a script into statements on line-ending semicolons,
// dropping full-line "--" comments
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			statements = append(statements, stmt)
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest) // Last statement without a semicolon
	}
	return statements
}
