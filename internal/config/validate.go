package config

import (
	"errors"
	"fmt"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.Audio.FrameLength <= 0 {
		return errors.New("audio.frame_length must be positive")
	}
	if cfg.Audio.HopLength <= 0 {
		return errors.New("audio.hop_length must be positive")
	}
	if cfg.Audio.HopLength > cfg.Audio.FrameLength {
		return fmt.Errorf("audio.hop_length %d exceeds frame_length %d", cfg.Audio.HopLength, cfg.Audio.FrameLength)
	}
	if cfg.Audio.SmoothWindow <= 0 {
		return errors.New("audio.smooth_window must be positive")
	}
	for _, k := range cfg.Audio.ThresholdSteps {
		if k <= 0 {
			return fmt.Errorf("audio.threshold_steps entry %v must be positive", k)
		}
	}
	if cfg.Audio.MinEventSpacing <= 0 {
		return errors.New("audio.min_event_spacing must be positive")
	}
	if cfg.Audio.SmallCountDamp <= 0 || cfg.Audio.SmallCountDamp > 1 {
		return errors.New("audio.small_count_damp must be in (0,1]")
	}

	for name, v := range map[string]float64{
		"vision.dog_strong":     cfg.Vision.DogStrong,
		"vision.dog_grey":       cfg.Vision.DogGrey,
		"vision.min_area_ratio": cfg.Vision.MinAreaRatio,
		"vision.grey_min_area":  cfg.Vision.GreyMinArea,
		"vision.car_veto":       cfg.Vision.CarVeto,
		"vision.car_override":   cfg.Vision.CarOverride,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0,1]", name)
		}
	}
	if cfg.Vision.DogGrey > cfg.Vision.DogStrong {
		return errors.New("vision.dog_grey must not exceed vision.dog_strong")
	}

	if cfg.Fusion.AudioWeight < 0 || cfg.Fusion.VisionWeight < 0 || cfg.Fusion.TextWeight < 0 {
		return errors.New("fusion weights must not be negative")
	}
	if cfg.Fusion.AudioWeight+cfg.Fusion.VisionWeight+cfg.Fusion.TextWeight <= 0 {
		return errors.New("at least one fusion weight must be positive")
	}
	if cfg.Fusion.MediumCut > cfg.Fusion.HighCut {
		return fmt.Errorf("fusion.medium_cut %v exceeds high_cut %v", cfg.Fusion.MediumCut, cfg.Fusion.HighCut)
	}

	if cfg.Storage.ResultsDir == "" {
		return errors.New("storage.results_dir must be set")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug|info|warn|error", cfg.Logging.Level)
	}

	return nil
}
