package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesValidDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	if cfg.Audio.FrameLength != 2048 || cfg.Audio.HopLength != 1024 {
		t.Fatalf("audio defaults: %+v", cfg.Audio)
	}
	if got := cfg.Audio.ThresholdSteps; len(got) != 3 || got[0] != 10 || got[1] != 8 || got[2] != 6 {
		t.Fatalf("threshold steps: %v", got)
	}
	if cfg.Fusion.AudioWeight != 0.6 || cfg.Fusion.VisionWeight != 0.2 || cfg.Fusion.TextWeight != 0.2 {
		t.Fatalf("fusion defaults: %+v", cfg.Fusion)
	}
	if cfg.Storage.ResultsDir != "results" {
		t.Fatalf("results dir default: %q", cfg.Storage.ResultsDir)
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kennelguard.yaml")
	body := `
audio:
  hop_length: 512
fusion:
  audio_weight: 0.5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Audio.HopLength != 512 {
		t.Fatalf("hop override: got %d", cfg.Audio.HopLength)
	}
	if cfg.Audio.FrameLength != 2048 {
		t.Fatalf("frame default lost: got %d", cfg.Audio.FrameLength)
	}
	if cfg.Fusion.AudioWeight != 0.5 {
		t.Fatalf("audio weight override: got %v", cfg.Fusion.AudioWeight)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level: got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("audio: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestValidateRejections(t *testing.T) {
	mutate := func(f func(*Config)) *Config {
		cfg := defaultConfig()
		f(cfg)
		return cfg
	}

	cases := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "hop exceeds frame", cfg: mutate(func(c *Config) { c.Audio.HopLength = 4096 })},
		{name: "bad damp", cfg: mutate(func(c *Config) { c.Audio.SmallCountDamp = 1.5 })},
		{name: "negative weight", cfg: mutate(func(c *Config) { c.Fusion.TextWeight = -0.1 })},
		{name: "cuts out of order", cfg: mutate(func(c *Config) { c.Fusion.MediumCut = 0.9 })},
		{name: "grey above strong", cfg: mutate(func(c *Config) { c.Vision.DogGrey = 0.95 })},
		{name: "unknown log level", cfg: mutate(func(c *Config) { c.Logging.Level = "loud" })},
		{name: "empty results dir", cfg: mutate(func(c *Config) { c.Storage.ResultsDir = "" })},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
