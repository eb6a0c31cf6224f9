package cough

import (
	"fmt"
	"math"
	"sort"

	"github.com/companiondog-ai/kennelguard/internal/config"
	"github.com/companiondog-ai/kennelguard/internal/wave"
)

// Scoring constants: events-per-10s and total count that each saturate
// their half of the score, and the count below which the score is damped.
const (
	rateFullScale  = 6.0
	countFullScale = 25.0
	dampBelowCount = 4

	// Keeps MAD nonzero on flat envelopes so thresholds stay above silence.
	madEpsilon = 1e-9
)

// Result is the outcome of burst detection on one clip.
type Result struct {
	Score      float64   `json:"cough_score"`
	EventCount int       `json:"events"`
	Timestamps []float64 `json:"timestamps"`
}

// Detector finds cough-like energy bursts in a waveform.
type Detector struct {
	cfg config.AudioConfig
}

// New builds a detector from audio config, filling zero fields with defaults.
func New(cfg config.AudioConfig) *Detector {
	if cfg.FrameLength <= 0 {
		cfg.FrameLength = 2048
	}
	if cfg.HopLength <= 0 {
		cfg.HopLength = 1024
	}
	if cfg.SmoothWindow <= 0 {
		cfg.SmoothWindow = 5
	}
	if len(cfg.ThresholdSteps) == 0 {
		cfg.ThresholdSteps = []float64{10, 8, 6}
	}
	if cfg.MinEventSpacing <= 0 {
		cfg.MinEventSpacing = 0.5
	}
	if cfg.SmallCountDamp <= 0 {
		cfg.SmallCountDamp = 0.4
	}
	return &Detector{cfg: cfg}
}

// Analyze runs burst detection and scoring on the waveform.
// It is deterministic: identical input always yields identical output.
func (d *Detector) Analyze(w wave.Waveform) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("analyze audio: %w", err)
	}

	env := rmsEnvelope(w.Samples, d.cfg.FrameLength, d.cfg.HopLength)
	env = smooth(env, d.cfg.SmoothWindow)

	med := median(env)
	mad := medianAbsDev(env, med) + madEpsilon

	minDistFrames := int(d.cfg.MinEventSpacing * float64(w.SampleRate) / float64(d.cfg.HopLength))
	if minDistFrames < 1 {
		minDistFrames = 1
	}

	// Try successively looser thresholds, stopping at the first that fires.
	var peaks []int
	for _, k := range d.cfg.ThresholdSteps {
		peaks = pickPeaks(env, med+k*mad, minDistFrames)
		if len(peaks) > 0 {
			break
		}
	}

	timestamps := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		ts := float64(p*d.cfg.HopLength) / float64(w.SampleRate)
		timestamps = append(timestamps, round2(ts))
	}

	return &Result{
		Score:      d.score(len(peaks), w.Duration()),
		EventCount: len(peaks),
		Timestamps: timestamps,
	}, nil
}

// score blends an event-rate component with a raw-count component, damping
// small counts hard so a couple of barks do not spike the result.
func (d *Detector) score(events int, duration float64) float64 {
	if events == 0 {
		return 0
	}

	per10s := float64(events) / math.Max(1e-9, duration/10.0)
	rateScore := math.Min(1, per10s/rateFullScale)
	countScore := math.Min(1, float64(events)/countFullScale)

	raw := math.Min(1, 0.5*rateScore+0.5*countScore)
	if events < dampBelowCount {
		raw *= d.cfg.SmallCountDamp
	}
	return round3(raw)
}

// rmsEnvelope computes short-time root-mean-square energy over hopped windows.
func rmsEnvelope(samples []float64, frame, hop int) []float64 {
	env := make([]float64, 0, len(samples)/hop+1)
	for start := 0; start < len(samples); start += hop {
		end := start + frame
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			sum += s * s
		}
		env = append(env, math.Sqrt(sum/float64(end-start)))
	}
	return env
}

// smooth applies a centered moving average with zero padding at the edges.
func smooth(env []float64, win int) []float64 {
	if win <= 1 || len(env) == 0 {
		return env
	}
	half := win / 2
	out := make([]float64, len(env))
	for i := range env {
		var sum float64
		for j := i - half; j <= i+half; j++ {
			if j >= 0 && j < len(env) {
				sum += env[j]
			}
		}
		out[i] = sum / float64(win)
	}
	return out
}

// pickPeaks returns indices of local maxima above thr, enforcing a minimum
// spacing in frames between accepted peaks. A run of equal values counts as
// one maximum at its midpoint: smoothing a burst narrower than the averaging
// window yields exactly equal adjacent frames, and a strict neighbor
// comparison would drop such events entirely.
func pickPeaks(env []float64, thr float64, minDist int) []int {
	var peaks []int
	i := 1
	for i < len(env)-1 {
		if env[i] <= thr || env[i] <= env[i-1] {
			i++
			continue
		}
		// Rising edge above the threshold: scan the plateau of equal values
		// and require a strict drop on its right.
		j := i
		for j < len(env)-1 && env[j+1] == env[i] {
			j++
		}
		if j == len(env)-1 || env[j+1] > env[i] {
			i = j + 1
			continue
		}
		p := (i + j) / 2
		if len(peaks) == 0 || p-peaks[len(peaks)-1] >= minDist {
			peaks = append(peaks, p)
		}
		i = j + 1
	}
	return peaks
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func medianAbsDev(xs []float64, med float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - med)
	}
	return median(dev)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
