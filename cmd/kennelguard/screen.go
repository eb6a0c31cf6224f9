package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/companiondog-ai/kennelguard/internal/report"
	"github.com/companiondog-ai/kennelguard/internal/screening"
	"github.com/companiondog-ai/kennelguard/internal/vision"
)

func newScreenCmd() *cobra.Command {
	var (
		audioPath  string
		imagePath  string
		noteText   string
		noteFile   string
		resultsDir string
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run the full audio + vision + text screening pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if audioPath == "" {
				return fmt.Errorf("--audio is required")
			}
			if noteText != "" && noteFile != "" {
				return fmt.Errorf("--note and --note-file are mutually exclusive")
			}
			if noteFile != "" {
				data, err := os.ReadFile(noteFile)
				if err != nil {
					return fmt.Errorf("read note file: %w", err)
				}
				noteText = string(data)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if resultsDir != "" {
				cfg.Storage.ResultsDir = resultsDir
			}

			opts := []screening.Option{screening.WithLogger(log)}

			if imagePath != "" {
				if cfg.Vision.BundleDir == "" {
					return fmt.Errorf("--image given but vision.bundle_dir is not configured")
				}
				model, err := vision.LoadModel(cfg.Vision.BundleDir)
				if err != nil {
					// External dependency failure degrades to "not detected"
					// rather than aborting the whole screening.
					log.WithError(err).Warn("vision model unavailable, continuing without it")
				} else {
					opts = append(opts, screening.WithDetector(model))
				}
			}

			store, err := report.NewDirStore(cfg.Storage.ResultsDir)
			if err != nil {
				return err
			}
			opts = append(opts, screening.WithStore(store))

			if cfg.Storage.LogFile != "" {
				sink, err := report.NewLogSink(cfg.Storage.LogFile)
				if err != nil {
					return err
				}
				defer sink.Close()
				opts = append(opts, screening.WithStore(sink))
			}

			scr := screening.New(cfg, opts...)
			rep, err := scr.Run(cmd.Context(), screening.Case{
				AudioPath: audioPath,
				ImagePath: imagePath,
				Note:      noteText,
			})
			if err != nil {
				return err
			}

			printSummary(rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "path to WAV audio clip (required)")
	cmd.Flags().StringVar(&imagePath, "image", "", "optional path to JPEG/PNG image")
	cmd.Flags().StringVar(&noteText, "note", "", "optional owner note text")
	cmd.Flags().StringVar(&noteFile, "note-file", "", "optional file containing the owner note")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "override storage.results_dir")

	return cmd
}

func printSummary(rep *report.Report) {
	fmt.Printf("Case %s\n", rep.CaseID)
	fmt.Printf("  audio score: %.3f (%d events)\n", rep.Audio.Score, rep.Audio.EventCount)
	if rep.Vision != nil {
		fmt.Printf("  dog detected: %v (conf %.3f)\n", rep.Vision.DogDetected, rep.Vision.DogConfidence)
	}
	fmt.Printf("  text severity: %.3f\n", rep.Text.Severity)
	fmt.Printf("  fused risk: %.3f (%s)\n", rep.FusedRiskScore, rep.FusedRiskLabel)
	fmt.Printf("  %s\n", strings.Join(rep.Fusion.Explanation, " "))
}
