package vision

import (
	"context"
	"image"
	"math"

	"github.com/companiondog-ai/kennelguard/internal/config"
)

// Detection is one labeled bounding box from an object detector.
type Detection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// Detector is the external pretrained-model capability. The rest of the
// system only depends on this interface, never on a model runtime.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Result is the normalized dog decision derived from raw detections.
type Result struct {
	DogDetected   bool    `json:"dog_detected"`
	DogConfidence float64 `json:"dog_conf"`
	CarConfidence float64 `json:"car_conf"`
	BestAreaRatio float64 `json:"best_area_ratio"`
}

// Assess applies the dog decision rule to raw detections.
//
// A dog counts when it is confident and its box covers enough of the image,
// with a grey zone where lower confidence is accepted for larger boxes. A
// strong car detection vetoes the dog unless the dog confidence is very high,
// guarding against car/dog confusion in street scenes.
func Assess(detections []Detection, bounds image.Rectangle, cfg config.VisionConfig) Result {
	imgArea := float64(bounds.Dx()) * float64(bounds.Dy())

	var dogConf, carConf, bestArea float64
	for _, d := range detections {
		ratio := 0.0
		if imgArea > 0 {
			area := math.Max(0, float64(d.Box.Dx())*float64(d.Box.Dy()))
			ratio = area / imgArea
		}

		switch d.Label {
		case "car":
			carConf = math.Max(carConf, d.Confidence)
		case "dog":
			dogConf = math.Max(dogConf, d.Confidence)
			bestArea = math.Max(bestArea, ratio)
		}
	}

	detected := false
	if dogConf >= cfg.DogStrong && bestArea >= cfg.MinAreaRatio {
		detected = true
	} else if dogConf >= cfg.DogGrey && bestArea >= cfg.GreyMinArea {
		detected = true
	}
	if carConf >= cfg.CarVeto && dogConf < cfg.CarOverride {
		detected = false
	}

	return Result{
		DogDetected:   detected,
		DogConfidence: round3(dogConf),
		CarConfidence: round3(carConf),
		BestAreaRatio: round3(bestArea),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
