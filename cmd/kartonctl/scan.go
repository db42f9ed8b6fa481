package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"karton/process/hotfolder"
)

var (
	scanPreset string
	scanTarget string
	watchDir   string
	watchOnce  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Scan label images and record the verdicts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := buildScanner(ctx, scanPreset, scanTarget)
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range args {
		reports, err := app.Scanner.ScanFile(ctx, path)
		if err != nil {
			return err
		}
		rep := <-reports
		printReport(filepath.Base(path), rep)
		if !rep.Result.Accepted() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files produced no accepted code", failed, len(args))
	}
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan images already in a directory and those dropped into it",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app, err := buildScanner(ctx, scanPreset, scanTarget)
	if err != nil {
		return err
	}
	hf := app.Config.Hotfolder
	if watchDir != "" {
		hf.Dir = watchDir
	}
	if hf.Dir == "" {
		return fmt.Errorf("no directory: set --dir or hotfolder.dir")
	}
	p := hotfolder.New(app.Scanner, hotfolder.Options{
		Dir:      hf.Dir,
		Workers:  hf.Workers,
		Debounce: hf.Debounce,
		Verbose:  verboseMode,
		OnResult: func(r hotfolder.Result) {
			if r.Err != nil {
				colorRed.Printf("%-8s", "ERROR")
				fmt.Printf(" %s  %v\n", r.Name, r.Err)
				return
			}
			printReport(r.Name, r.Report)
		},
	})
	if err := p.ScanExisting(ctx); err != nil {
		return err
	}
	if watchOnce {
		return nil
	}
	colorCyan.Printf("watching %s (Ctrl+C to stop)\n", hf.Dir)
	if err := p.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.Scanner.Wait()
	return nil
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, watchCmd} {
		c.Flags().StringVarP(&scanPreset, "preset", "p", "", "JIS or DIN (default scan.preset)")
		c.Flags().StringVarP(&scanTarget, "target", "t", "", "target label for OK / Not OK")
	}
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (default hotfolder.dir)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "scan existing files and exit")
	rootCmd.AddCommand(scanCmd, watchCmd)
}
