package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"karton/pkg/bootstrap"
	"karton/pkg/config"
	"karton/pkg/label"
	"karton/pkg/ocr"
)

var (
	variantsPreset string
	variantsOut    string
)

// variantsCmd shows what each preprocessing variant of an image reads as,
// without touching the database.
var variantsCmd = &cobra.Command{
	Use:   "variants FILE",
	Short: "Print the OCR candidates of every preprocessing variant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		std, err := cfg.Preset()
		if err != nil {
			return err
		}
		if variantsPreset != "" {
			if std, err = label.ParseStandard(variantsPreset); err != nil {
				return err
			}
		}
		reg, err := cfg.Registry()
		if err != nil {
			return err
		}
		img, err := imaging.Open(args[0], imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		if variantsOut != "" {
			if err := os.MkdirAll(variantsOut, 0o755); err != nil {
				return err
			}
		}

		rules := reg.Rules(std)
		opts := ocr.OptionsFor(rules.Profile)
		rec := bootstrap.Recognizer(cfg.OCR)
		base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		for i, v := range ocr.Variants(img, std, cfg.Scan.MaxWidth) {
			texts, err := rec.Extract(v.Image, opts)
			colorCyan.Printf("%d %-18s", i, v.Stage)
			if err != nil {
				colorRed.Printf(" error: %v\n", err)
			} else {
				fmt.Printf(" %q\n", texts)
			}
			for _, t := range texts {
				corrected := rules.Correct(t)
				if m, ok := rules.Matcher.Match(corrected); ok {
					colorGreen.Printf("  %q -> %q matches %q (%.3f)\n", t, corrected, m.Entry, m.Score)
				} else if verboseMode {
					fmt.Printf("  %q -> %q no match\n", t, corrected)
				}
			}
			if variantsOut != "" {
				name := filepath.Join(variantsOut, fmt.Sprintf("%s_%d_%s.png", base, i, v.Stage))
				if err := imaging.Save(v.Image, name); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	variantsCmd.Flags().StringVarP(&variantsPreset, "preset", "p", "", "JIS or DIN (default scan.preset)")
	variantsCmd.Flags().StringVarP(&variantsOut, "out", "o", "", "also save each variant as PNG here")
	rootCmd.AddCommand(variantsCmd)
}
