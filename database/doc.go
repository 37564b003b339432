// Package database provides the SQLite database behind the run ledger,
// built on GORM with the gorm.io/driver/sqlite dialector.
//
// It follows the component pattern: register a Component with the
// bootstrap registry, list the models to auto-migrate, and read the *DB
// after Start.
//
//	db := database.NewComponent(cfg.Ledger, log).
//	    WithAutoMigrate(ledger.Models()...)
//	app.RegisterComponent(db)
//
// When Enabled is false, Start returns immediately and Health reports
// "disabled".
package database
