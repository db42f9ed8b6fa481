package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"karton/pkg/store"
	"karton/process/report"
	"karton/process/retention"
)

var (
	reportDate string
	reportList bool
	reportJSON bool
	purgeDays  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the OK / Not OK breakdown of a day per target",
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now()
		if reportDate != "" {
			d, err := time.ParseInLocation("2006-01-02", reportDate, time.Local)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			day = d
		}
		_, db, err := openDB()
		if err != nil {
			return err
		}
		r, err := report.Build(cmd.Context(), store.NewGorm(db), day, reportList)
		if err != nil {
			return err
		}
		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		return report.Write(os.Stdout, r)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete detections and images older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		days := cfg.Storage.RetentionDays
		if cmd.Flags().Changed("days") {
			days = purgeDays
		}
		if days <= 0 {
			colorYellow.Println("retention disabled, nothing to do")
			return nil
		}
		n, err := retention.Purge(cmd.Context(), store.NewGorm(db), time.Now(), days)
		if err != nil {
			return err
		}
		colorGreen.Printf("purged %d detections before %s\n", n, retention.Cutoff(time.Now(), days).Format("2006-01-02"))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "day to report, YYYY-MM-DD (default today)")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "include every detection")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print JSON")
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "keep this many days (default storage.retention_days)")
	rootCmd.AddCommand(reportCmd, purgeCmd)
}
