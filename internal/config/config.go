package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds kennelguard configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Vision  VisionConfig  `yaml:"vision"`
	Fusion  FusionConfig  `yaml:"fusion"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig tunes the cough burst detector.
type AudioConfig struct {
	FrameLength     int       `yaml:"frame_length"`      // samples per RMS window
	HopLength       int       `yaml:"hop_length"`        // samples between windows
	SmoothWindow    int       `yaml:"smooth_window"`     // moving-average length
	ThresholdSteps  []float64 `yaml:"threshold_steps"`   // MAD multipliers, tried in order
	MinEventSpacing float64   `yaml:"min_event_spacing"` // seconds between accepted peaks
	SmallCountDamp  float64   `yaml:"small_count_damp"`  // score multiplier when <4 events
}

// VisionConfig points at the detector bundle and tunes the dog decision rule.
type VisionConfig struct {
	BundleDir    string  `yaml:"bundle_dir"`
	DogStrong    float64 `yaml:"dog_strong"`     // confidence for a strong detection
	DogGrey      float64 `yaml:"dog_grey"`       // grey-zone confidence floor
	MinAreaRatio float64 `yaml:"min_area_ratio"` // box area floor for strong detections
	GreyMinArea  float64 `yaml:"grey_min_area"`  // larger area floor in the grey zone
	CarVeto      float64 `yaml:"car_veto"`       // car confidence that vetoes a dog
	CarOverride  float64 `yaml:"car_override"`   // dog confidence immune to the veto
}

// FusionConfig holds the per-modality weights and label cut points.
type FusionConfig struct {
	AudioWeight  float64 `yaml:"audio_weight"`
	VisionWeight float64 `yaml:"vision_weight"`
	TextWeight   float64 `yaml:"text_weight"`
	HighCut      float64 `yaml:"high_cut"`   // strictly above -> High
	MediumCut    float64 `yaml:"medium_cut"` // at or above -> Medium
}

type StorageConfig struct {
	ResultsDir string `yaml:"results_dir"` // session dirs are created under this root
	LogFile    string `yaml:"log_file"`    // optional JSONL append log, empty disables
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Audio.FrameLength <= 0 {
		cfg.Audio.FrameLength = 2048
	}
	if cfg.Audio.HopLength <= 0 {
		cfg.Audio.HopLength = 1024
	}
	if cfg.Audio.SmoothWindow <= 0 {
		cfg.Audio.SmoothWindow = 5
	}
	if len(cfg.Audio.ThresholdSteps) == 0 {
		cfg.Audio.ThresholdSteps = []float64{10, 8, 6}
	}
	if cfg.Audio.MinEventSpacing <= 0 {
		cfg.Audio.MinEventSpacing = 0.5
	}
	if cfg.Audio.SmallCountDamp <= 0 {
		cfg.Audio.SmallCountDamp = 0.4
	}

	if cfg.Vision.DogStrong <= 0 {
		cfg.Vision.DogStrong = 0.70
	}
	if cfg.Vision.DogGrey <= 0 {
		cfg.Vision.DogGrey = 0.60
	}
	if cfg.Vision.MinAreaRatio <= 0 {
		cfg.Vision.MinAreaRatio = 0.03
	}
	if cfg.Vision.GreyMinArea <= 0 {
		cfg.Vision.GreyMinArea = 0.06
	}
	if cfg.Vision.CarVeto <= 0 {
		cfg.Vision.CarVeto = 0.60
	}
	if cfg.Vision.CarOverride <= 0 {
		cfg.Vision.CarOverride = 0.85
	}

	if cfg.Fusion.AudioWeight <= 0 {
		cfg.Fusion.AudioWeight = 0.6
	}
	if cfg.Fusion.VisionWeight <= 0 {
		cfg.Fusion.VisionWeight = 0.2
	}
	if cfg.Fusion.TextWeight <= 0 {
		cfg.Fusion.TextWeight = 0.2
	}
	if cfg.Fusion.HighCut <= 0 {
		cfg.Fusion.HighCut = 0.5
	}
	if cfg.Fusion.MediumCut <= 0 {
		cfg.Fusion.MediumCut = 0.2
	}

	if cfg.Storage.ResultsDir == "" {
		cfg.Storage.ResultsDir = "results"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
