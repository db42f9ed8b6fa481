package main

import (
	"errors"

	"github.com/spf13/cobra"

	"karton/models"
	"karton/pkg/bootstrap"
)

var (
	operatorName  string
	operatorAdmin bool
)

var createOperatorCmd = &cobra.Command{
	Use:   "create-operator USERNAME PASSWORD",
	Short: "Create an operator account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		if err := bootstrap.Seed(db); err != nil {
			return err
		}
		role := models.RoleOperator
		if operatorAdmin {
			role = models.RoleAdministrator
		}
		op, err := bootstrap.CreateOperator(db, args[0], args[1], operatorName, role)
		if errors.Is(err, bootstrap.ErrOperatorExists) {
			colorYellow.Printf("operator %s already exists\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		colorGreen.Printf("created operator %s id=%d role=%s\n", op.Username, op.ID, role)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password USERNAME PASSWORD",
	Short: "Set a new password for an operator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		if err := bootstrap.SetPassword(db, args[0], args[1]); err != nil {
			return err
		}
		colorGreen.Printf("password reset for %s\n", args[0])
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed roles and the admin operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		if !cfg.Database.AutoMigrate {
			bootstrap.Migrate(db)
		}
		if err := bootstrap.Seed(db); err != nil {
			return err
		}
		bootstrap.EnsureDirs(cfg.Storage)
		colorGreen.Println("migration and seeding completed")
		return nil
	},
}

func init() {
	createOperatorCmd.Flags().StringVar(&operatorName, "name", "", "display name")
	createOperatorCmd.Flags().BoolVar(&operatorAdmin, "admin", false, "grant the administrator role")
	rootCmd.AddCommand(createOperatorCmd, resetPasswordCmd, migrateCmd)
}
