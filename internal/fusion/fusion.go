package fusion

import (
	"fmt"
	"math"

	"github.com/companiondog-ai/kennelguard/internal/config"
	"github.com/companiondog-ai/kennelguard/internal/note"
	"github.com/companiondog-ai/kennelguard/internal/vision"
)

// Level is the three-way risk classification.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Result is the fused multi-modal risk assessment.
type Result struct {
	RiskScore   float64  `json:"risk_score"`
	RiskLevel   Level    `json:"risk_level"`
	Explanation []string `json:"explanation"`
}

// The audio score at or above which the cough explanation line is emitted.
const audioExplainCut = 0.6

// Combine fuses the three modality scores into one risk assessment.
//
// The vision contribution is the dog confidence when a dog was detected and
// zero otherwise. Pure and deterministic; monotonically non-decreasing in
// each input while the others are held fixed.
func Combine(audioScore float64, vis vision.Result, txt *note.Result, cfg config.FusionConfig) Result {
	visScore := 0.0
	if vis.DogDetected {
		visScore = vis.DogConfidence
	}
	var txtScore float64
	if txt != nil {
		txtScore = txt.Severity
	}

	risk := cfg.AudioWeight*audioScore + cfg.VisionWeight*visScore + cfg.TextWeight*txtScore

	// Label from the unrounded score: 0.5 is Medium under the strict > rule
	// even though it reports as 0.5.
	level := LevelLow
	switch {
	case risk > cfg.HighCut:
		level = LevelHigh
	case risk >= cfg.MediumCut:
		level = LevelMedium
	}

	var explanation []string
	if audioScore >= audioExplainCut {
		explanation = append(explanation, "Audio: cough-like events detected.")
	}
	if vis.DogDetected {
		explanation = append(explanation, "Vision: dog detected in image.")
	}
	if txt != nil && txtScore > 0 {
		explanation = append(explanation, fmt.Sprintf("Text: symptoms mentioned (%s).", txt.Summary()))
	}
	if len(explanation) == 0 {
		explanation = append(explanation, "No strong signals found from inputs.")
	}

	return Result{
		RiskScore:   round3(risk),
		RiskLevel:   level,
		Explanation: explanation,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
