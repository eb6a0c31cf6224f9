package report

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/companiondog-ai/kennelguard/internal/cough"
	"github.com/companiondog-ai/kennelguard/internal/fusion"
	"github.com/companiondog-ai/kennelguard/internal/note"
	"github.com/companiondog-ai/kennelguard/internal/vision"
)

// Report is the canonical persisted record of one screening case.
type Report struct {
	CaseID      string    `json:"case_id"`
	GeneratedAt time.Time `json:"generated_at"`

	AudioPath string `json:"audio_path"`
	ImagePath string `json:"image_path,omitempty"`
	OwnerNote string `json:"owner_note,omitempty"`

	Audio  *cough.Result  `json:"audio"`
	Vision *vision.Result `json:"vision,omitempty"`
	Text   *note.Result   `json:"text"`
	Fusion fusion.Result  `json:"fusion"`

	// Flat summary fields mirrored for downstream consumers.
	AudioRiskScore float64 `json:"audio_risk_score"`
	TextRiskScore  float64 `json:"text_risk_score"`
	FusedRiskScore float64 `json:"fused_risk_score"`
	FusedRiskLabel string  `json:"fused_risk_label"`
}

// NewCaseID returns a timestamped identifier, e.g. case_20260827-101502_a1b2c3d4.
// The random suffix keeps back-to-back runs within one second distinct.
func NewCaseID(now time.Time) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return "case_" + now.Format("20060102-150405") + "_" + hex.EncodeToString(buf[:])
}
