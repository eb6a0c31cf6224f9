package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/companiondog-ai/kennelguard/internal/config"
)

var (
	configPath string
	log        = logrus.New()
)

func main() {
	// Optional .env for ONNXRUNTIME_SHARED_LIBRARY_PATH and friends.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "kennelguard",
		Short:         "Multi-modal kennel cough risk screener",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "kennelguard.yaml", "path to config file")

	root.AddCommand(newScreenCmd())
	root.AddCommand(newAudioCmd())
	root.AddCommand(newNoteCmd())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the config file and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	return cfg, nil
}
