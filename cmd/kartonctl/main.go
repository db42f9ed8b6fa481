// Command kartonctl runs label scans and maintenance against a karton
// database without the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"karton/pkg/bootstrap"
	"karton/pkg/config"
	"karton/pkg/label"
	"karton/pkg/scan"
)

var (
	configPath  string
	verboseMode bool

	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kartonctl",
	Short: "Battery label scanning and maintenance",
	Long: `kartonctl scans battery terminal label photos against the JIS and DIN
catalogs and maintains the detection database.

Examples:
  kartonctl scan --preset DIN --target "LBN 1" photo1.jpg photo2.jpg
  kartonctl watch --dir /srv/incoming
  kartonctl report --date 2026-03-14 --list
  kartonctl purge --days 30`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./karton.yaml or /etc/karton/karton.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "verbose output")
}

// openDB loads the configuration and connects, migrating when auto_migrate is on.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := bootstrap.OpenDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		bootstrap.Migrate(db)
	}
	return cfg, db, nil
}

// buildScanner wires a scanner and applies preset and target overrides.
func buildScanner(ctx context.Context, preset, target string) (*bootstrap.Components, error) {
	cfg, db, err := openDB()
	if err != nil {
		return nil, err
	}
	bootstrap.EnsureDirs(cfg.Storage)
	app, err := bootstrap.Build(ctx, cfg, db, nil, scan.NopPresenter{})
	if err != nil {
		return nil, err
	}
	settings := app.Session.Settings()
	if preset != "" {
		if settings.Preset, err = label.ParseStandard(preset); err != nil {
			return nil, err
		}
		settings.Target = ""
	}
	if target != "" {
		if settings.Target, err = app.Pipeline.Registry().Target(settings.Preset, target); err != nil {
			return nil, err
		}
	}
	if _, err := app.Session.Update(func(s *scan.Settings) { *s = settings }); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return app, nil
}

// printReport writes one colored line per scan.
func printReport(name string, rep scan.Report) {
	switch o := rep.Outcome.(type) {
	case scan.Verdict:
		c := colorGreen
		if !o.Record.OK() {
			c = colorRed
		}
		c.Printf("%-8s", o.Record.Status)
		fmt.Printf(" %s  %s  target=%s\n", name, o.Record.Code, o.Record.TargetSession)
	case scan.Rejected:
		colorYellow.Printf("%-8s", "REJECT")
		fmt.Printf(" %s  %s  %s\n", name, o.Code, o.Message)
	default:
		colorRed.Printf("%-8s", scan.Signal(o, false))
		fmt.Printf(" %s\n", name)
	}
	if verboseMode {
		colorCyan.Printf("         id=%s trail=%v candidates=%q\n", rep.Result.ID, rep.Result.Trail, rep.Result.Pool.Unique())
	}
}
