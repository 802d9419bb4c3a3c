// Package database wraps the console's local SQLite file.
//
// The file holds a single persisted session slot plus the
// schema_migrations table. Migrations are plain SQL files named
// YYYYMMDD_HHMMSS_description.up.sql (with an optional .down.sql) and are
// read from any fs.FS, normally the embedded migrations package.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
