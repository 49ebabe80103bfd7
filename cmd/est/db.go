package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/estimaite/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the feedback database",
		Long:  "Creates the MySQL database when needed and migrates the feedback tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to EstimAIte config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// A server-level connection is only needed when the database is named in
	// the mysql block rather than baked into a DSN.
	m := cfg.Feedback.MySQL
	if cfg.Feedback.Driver == db.DriverMySQL && cfg.Feedback.DSN == "" {
		adminDB, err := db.ConnectAdmin(m.Host, m.Port, m.User, m.Password)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", m.Host, m.Port, err)
		}
		err = db.CreateDatabase(adminDB, m.Database)
		db.Close(adminDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %q ready on %s:%d\n", m.Database, m.Host, m.Port)
	}

	gormDB, err := openFeedbackDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	fmt.Fprintf(out, "Migrated %d table(s) using %s\n", len(db.AllModels()), cfg.Feedback.Driver)
	return nil
}
