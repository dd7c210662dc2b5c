package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Connect opens the pool and pings it. maxConns caps open connections;
// half of them may stay idle.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if maxConns > 0 {
		pool.SetMaxOpenConns(int(maxConns))
		pool.SetMaxIdleConns(max(1, int(maxConns)/2))
	}
	pool.SetConnMaxIdleTime(15 * time.Minute)
	pool.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type schemaMigration struct {
	Name      string    `gorm:"column:name;primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string { return "escrow_schema_migrations" }

// RunMigrations applies each embedded migration that is not yet recorded,
// in file name order, one transaction per file.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}
	db = db.WithContext(ctx)
	if err := db.Exec(`CREATE TABLE IF NOT EXISTS escrow_schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL
)`).Error; err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}
	var applied []string
	if err := db.Model(&schemaMigration{}).Pluck("name", &applied).Error; err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	for _, name := range names {
		if done[name] {
			continue
		}
		sqlText, err := migrationFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			// Prepared statements hold a single command each.
			for _, stmt := range splitStatements(string(sqlText)) {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&schemaMigration{Name: name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements cuts a migration file at statement-terminating semicolons.
// Migrations must not carry semicolons inside literals or function bodies.
func splitStatements(sqlText string) []string {
	var out []string
	for _, part := range strings.Split(sqlText, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
