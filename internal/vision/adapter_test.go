package vision

import (
	"image"
	"testing"

	"github.com/companiondog-ai/kennelguard/internal/config"
)

func testVisionConfig() config.VisionConfig {
	return config.VisionConfig{
		DogStrong:    0.70,
		DogGrey:      0.60,
		MinAreaRatio: 0.03,
		GreyMinArea:  0.06,
		CarVeto:      0.60,
		CarOverride:  0.85,
	}
}

func TestAssess(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100) // area 10000

	cases := []struct {
		name         string
		detections   []Detection
		wantDetected bool
	}{
		{
			name: "strong dog with enough area",
			detections: []Detection{
				{Label: "dog", Confidence: 0.8, Box: image.Rect(0, 0, 20, 20)}, // ratio 0.04
			},
			wantDetected: true,
		},
		{
			name: "strong confidence but tiny box",
			detections: []Detection{
				{Label: "dog", Confidence: 0.8, Box: image.Rect(0, 0, 10, 10)}, // ratio 0.01
			},
			wantDetected: false,
		},
		{
			name: "grey zone accepted with large box",
			detections: []Detection{
				{Label: "dog", Confidence: 0.65, Box: image.Rect(0, 0, 25, 25)}, // ratio 0.0625
			},
			wantDetected: true,
		},
		{
			name: "grey zone rejected with medium box",
			detections: []Detection{
				{Label: "dog", Confidence: 0.65, Box: image.Rect(0, 0, 20, 20)}, // ratio 0.04
			},
			wantDetected: false,
		},
		{
			name: "car vetoes moderate dog",
			detections: []Detection{
				{Label: "dog", Confidence: 0.75, Box: image.Rect(0, 0, 30, 30)},
				{Label: "car", Confidence: 0.70, Box: image.Rect(0, 0, 90, 90)},
			},
			wantDetected: false,
		},
		{
			name: "very confident dog survives car veto",
			detections: []Detection{
				{Label: "dog", Confidence: 0.90, Box: image.Rect(0, 0, 30, 30)},
				{Label: "car", Confidence: 0.70, Box: image.Rect(0, 0, 90, 90)},
			},
			wantDetected: true,
		},
		{
			name:         "no detections",
			detections:   nil,
			wantDetected: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Assess(tc.detections, bounds, testVisionConfig())
			if res.DogDetected != tc.wantDetected {
				t.Fatalf("dog_detected=%v, want %v (%+v)", res.DogDetected, tc.wantDetected, res)
			}
		})
	}
}

func TestAssessTracksMaxima(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	res := Assess([]Detection{
		{Label: "dog", Confidence: 0.55, Box: image.Rect(0, 0, 40, 40)}, // ratio 0.16
		{Label: "dog", Confidence: 0.72, Box: image.Rect(0, 0, 20, 20)}, // ratio 0.04
		{Label: "car", Confidence: 0.30, Box: image.Rect(0, 0, 50, 50)},
		{Label: "person", Confidence: 0.99, Box: bounds},
	}, bounds, testVisionConfig())

	if res.DogConfidence != 0.72 {
		t.Fatalf("dog confidence: got %v, want 0.72", res.DogConfidence)
	}
	// Best area ratio is the max over all dog boxes, not the most confident one.
	if res.BestAreaRatio != 0.16 {
		t.Fatalf("best area ratio: got %v, want 0.16", res.BestAreaRatio)
	}
	if res.CarConfidence != 0.3 {
		t.Fatalf("car confidence: got %v, want 0.3", res.CarConfidence)
	}
	if !res.DogDetected {
		t.Fatal("expected dog detected")
	}
}

func TestAssessRoundsToThreeDecimals(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	res := Assess([]Detection{
		{Label: "dog", Confidence: 0.67891, Box: image.Rect(0, 0, 33, 33)},
	}, bounds, testVisionConfig())

	if res.DogConfidence != 0.679 {
		t.Fatalf("dog confidence: got %v, want 0.679", res.DogConfidence)
	}
	if res.BestAreaRatio != 0.109 {
		t.Fatalf("area ratio: got %v, want 0.109", res.BestAreaRatio)
	}
}

func TestAssessEmptyBounds(t *testing.T) {
	res := Assess([]Detection{
		{Label: "dog", Confidence: 0.9, Box: image.Rect(0, 0, 10, 10)},
	}, image.Rectangle{}, testVisionConfig())

	if res.BestAreaRatio != 0 {
		t.Fatalf("area ratio with empty bounds: got %v, want 0", res.BestAreaRatio)
	}
	if res.DogDetected {
		t.Fatal("no area means no detection")
	}
}
