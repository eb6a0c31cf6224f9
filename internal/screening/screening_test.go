package screening

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/companiondog-ai/kennelguard/internal/config"
	"github.com/companiondog-ai/kennelguard/internal/report"
	"github.com/companiondog-ai/kennelguard/internal/vision"
)

type fakeDetector struct {
	dets []vision.Detection
	err  error
}

func (f *fakeDetector) Detect(_ context.Context, _ image.Image) ([]vision.Detection, error) {
	return f.dets, f.err
}

type memStore struct {
	saved []*report.Report
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Save(_ context.Context, r *report.Report) (string, error) {
	m.saved = append(m.saved, r)
	return "mem://" + r.CaseID, nil
}

func testConfig() *config.Config {
	cfg, err := config.Load(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// writeBurstWAV writes a clip of silence with cough-like bursts at the given
// seconds.
func writeBurstWAV(t *testing.T, path string, seconds float64, burstsAt []float64) {
	t.Helper()

	const rate = 16000
	samples := make([]float64, int(seconds*rate))
	for _, at := range burstsAt {
		center := int(at * rate)
		half := rate / 20
		for i := -half; i <= half; i++ {
			idx := center + i
			if idx < 0 || idx >= len(samples) {
				continue
			}
			amp := 0.9 * (1 - math.Abs(float64(i))/float64(half+1))
			if i%2 == 0 {
				samples[idx] = amp
			} else {
				samples[idx] = -amp
			}
		}
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * 32767)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 100, 100))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestRunFullCase(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")
	imagePath := filepath.Join(dir, "frame.png")
	writeBurstWAV(t, audioPath, 5, []float64{1.0, 2.0, 3.0})
	writePNG(t, imagePath)

	det := &fakeDetector{dets: []vision.Detection{
		{Label: "dog", Confidence: 0.9, Box: image.Rect(0, 0, 40, 40)},
	}}
	store := &memStore{}

	scr := New(testConfig(),
		WithDetector(det),
		WithStore(store),
		WithLogger(quietLogger()))

	rep, err := scr.Run(context.Background(), Case{
		AudioPath: audioPath,
		ImagePath: imagePath,
		Note:      "hacking cough after daycare",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rep.Audio.EventCount == 0 {
		t.Fatal("expected audio events")
	}
	if rep.Vision == nil || !rep.Vision.DogDetected {
		t.Fatalf("expected dog detected, got %+v", rep.Vision)
	}
	if rep.Text.Severity != 0.45 {
		t.Fatalf("text severity: got %v, want 0.45", rep.Text.Severity)
	}
	if rep.FusedRiskScore != rep.Fusion.RiskScore {
		t.Fatalf("summary score %v disagrees with fusion %v", rep.FusedRiskScore, rep.Fusion.RiskScore)
	}
	if rep.FusedRiskLabel != string(rep.Fusion.RiskLevel) {
		t.Fatalf("summary label %s disagrees with fusion %s", rep.FusedRiskLabel, rep.Fusion.RiskLevel)
	}

	if len(store.saved) != 1 || store.saved[0].CaseID != rep.CaseID {
		t.Fatalf("store did not receive the report: %+v", store.saved)
	}
}

func TestRunDetectorFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")
	imagePath := filepath.Join(dir, "frame.png")
	writeBurstWAV(t, audioPath, 4, []float64{1.0})
	writePNG(t, imagePath)

	det := &fakeDetector{err: errors.New("model unavailable")}
	scr := New(testConfig(), WithDetector(det), WithLogger(quietLogger()))

	rep, err := scr.Run(context.Background(), Case{AudioPath: audioPath, ImagePath: imagePath})
	if err != nil {
		t.Fatalf("detector failure must not abort the run: %v", err)
	}
	if rep.Vision == nil {
		t.Fatal("expected a vision result placeholder")
	}
	if rep.Vision.DogDetected || rep.Vision.DogConfidence != 0 {
		t.Fatalf("expected not-detected default, got %+v", rep.Vision)
	}
}

func TestRunWithoutImageSkipsVision(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")
	writeBurstWAV(t, audioPath, 4, nil)

	scr := New(testConfig(), WithLogger(quietLogger()))
	rep, err := scr.Run(context.Background(), Case{AudioPath: audioPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Vision != nil {
		t.Fatalf("expected no vision result, got %+v", rep.Vision)
	}
	if rep.Audio.EventCount != 0 || rep.FusedRiskScore != 0 {
		t.Fatalf("silent clip with no note should score zero, got %+v", rep)
	}
}

func TestRunMissingAudioFails(t *testing.T) {
	scr := New(testConfig(), WithLogger(quietLogger()))
	if _, err := scr.Run(context.Background(), Case{AudioPath: filepath.Join(t.TempDir(), "missing.wav")}); err == nil {
		t.Fatal("expected error for missing audio")
	}
}
