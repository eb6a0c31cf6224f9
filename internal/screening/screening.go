package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/companiondog-ai/kennelguard/internal/config"
	"github.com/companiondog-ai/kennelguard/internal/cough"
	"github.com/companiondog-ai/kennelguard/internal/fusion"
	"github.com/companiondog-ai/kennelguard/internal/note"
	"github.com/companiondog-ai/kennelguard/internal/report"
	"github.com/companiondog-ai/kennelguard/internal/vision"
	"github.com/companiondog-ai/kennelguard/internal/wave"
)

// Case is one screening request: a required audio clip plus optional image
// and owner note.
type Case struct {
	AudioPath string
	ImagePath string
	Note      string
}

// Screener runs the full audio -> vision -> text -> fusion pipeline for one
// case at a time. Runs share no mutable state, so separate Screeners (or the
// same one, sequentially) can process cases independently.
type Screener struct {
	cfg      *config.Config
	detector vision.Detector
	scorer   *note.Scorer
	bursts   *cough.Detector
	stores   []report.Store
	log      *logrus.Logger
}

// Option configures a Screener.
type Option func(*Screener)

// WithDetector injects the external object detector. Without one, image
// input is skipped and the vision contribution stays zero.
func WithDetector(d vision.Detector) Option {
	return func(s *Screener) { s.detector = d }
}

// WithStore adds a persistence collaborator. Reports are handed to every
// configured store.
func WithStore(st report.Store) Option {
	return func(s *Screener) { s.stores = append(s.stores, st) }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Screener) { s.log = l }
}

func New(cfg *config.Config, opts ...Option) *Screener {
	s := &Screener{
		cfg:    cfg,
		scorer: note.NewScorer(),
		bursts: cough.New(cfg.Audio),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one screening case to completion and persists the report.
// An unreadable or invalid audio clip aborts the run with no partial result.
// A detector failure is logged and degraded to "no dog detected" so one
// broken modality does not sink the whole screening.
func (s *Screener) Run(ctx context.Context, c Case) (*report.Report, error) {
	start := time.Now()

	w, err := wave.FromFile(c.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}

	audioRes, err := s.bursts.Analyze(w)
	if err != nil {
		return nil, fmt.Errorf("audio analysis: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"events": audioRes.EventCount,
		"score":  audioRes.Score,
	}).Info("audio analysis complete")

	var visRes vision.Result
	var visRan bool
	if c.ImagePath != "" && s.detector != nil {
		visRes, visRan = s.runVision(ctx, c.ImagePath)
	}

	textRes := s.scorer.Score(c.Note)
	if textRes.Severity > 0 {
		s.log.WithFields(logrus.Fields{
			"keywords": textRes.Summary(),
			"severity": textRes.Severity,
		}).Info("note analysis complete")
	}

	fused := fusion.Combine(audioRes.Score, visRes, textRes, s.cfg.Fusion)

	rep := &report.Report{
		CaseID:         report.NewCaseID(start),
		GeneratedAt:    start.UTC(),
		AudioPath:      c.AudioPath,
		ImagePath:      c.ImagePath,
		OwnerNote:      c.Note,
		Audio:          audioRes,
		Text:           textRes,
		Fusion:         fused,
		AudioRiskScore: audioRes.Score,
		TextRiskScore:  textRes.Severity,
		FusedRiskScore: fused.RiskScore,
		FusedRiskLabel: string(fused.RiskLevel),
	}
	if visRan {
		rep.Vision = &visRes
	}

	for _, st := range s.stores {
		path, err := st.Save(ctx, rep)
		if err != nil {
			s.log.WithError(err).Warnf("store %s failed", st.Name())
			continue
		}
		s.log.WithField("path", path).Debugf("report saved via %s", st.Name())
	}

	s.log.WithFields(logrus.Fields{
		"case_id": rep.CaseID,
		"risk":    fused.RiskScore,
		"level":   fused.RiskLevel,
	}).Info("screening complete")

	return rep, nil
}

// runVision loads the image and applies the detector. The boolean reports
// whether a usable vision result was produced.
func (s *Screener) runVision(ctx context.Context, path string) (vision.Result, bool) {
	img, err := vision.LoadImage(path)
	if err != nil {
		s.log.WithError(err).Warn("image unreadable, continuing without vision")
		return vision.Result{}, true
	}

	dets, err := s.detector.Detect(ctx, img)
	if err != nil {
		s.log.WithError(err).Warn("detector failed, continuing without vision")
		return vision.Result{}, true
	}

	res := vision.Assess(dets, img.Bounds(), s.cfg.Vision)
	s.log.WithFields(logrus.Fields{
		"dog_detected": res.DogDetected,
		"dog_conf":     res.DogConfidence,
	}).Info("vision analysis complete")
	return res, true
}
