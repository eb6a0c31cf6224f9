package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/companiondog-ai/kennelguard/internal/cough"
	"github.com/companiondog-ai/kennelguard/internal/note"
	"github.com/companiondog-ai/kennelguard/internal/wave"
)

// newAudioCmd runs just the burst detector and prints its result as JSON.
func newAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audio <file.wav>",
		Short: "Analyze a single audio clip for cough-like bursts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w, err := wave.FromFile(args[0])
			if err != nil {
				return err
			}
			res, err := cough.New(cfg.Audio).Analyze(w)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

// newNoteCmd runs just the text rule scorer and prints its result as JSON.
func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <text...>",
		Short: "Score an owner note for symptom severity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := note.NewScorer().Score(strings.Join(args, " "))
			return printJSON(res)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
