package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migrateMySQL "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"backoffice.GO/config"
	"backoffice.GO/migrations"
	"backoffice.GO/model"
)

var (
	migrateDown  bool
	migrateSteps int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema (embedded SQL for MySQL, AutoMigrate for SQLite)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		if config.DBDriver() == config.DriverSQLite {
			if migrateDown || migrateSteps != 0 {
				return fmt.Errorf("--down and --steps need DB_DRIVER=mysql")
			}
			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SQLite schema up to date.")
			return nil
		}
		m, err := newMigrator(db)
		if err != nil {
			return err
		}
		defer m.Close()
		switch {
		case migrateSteps != 0:
			err = m.Steps(migrateSteps)
		case migrateDown:
			err = m.Down()
		default:
			err = m.Up()
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Fprintln(cmd.OutOrStdout(), "No migrations to apply.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		version, dirty, _ := m.Version()
		fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty=%v).\n", version, dirty)
		return nil
	},
}

func newMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := migrateMySQL.WithInstance(sqlDB, &migrateMySQL.Config{})
	if err != nil {
		return nil, fmt.Errorf("mysql migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "mysql", driver)
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back every migration")
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Apply n migrations (negative rolls back)")
	rootCmd.AddCommand(migrateCmd)
}
